package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig is filled from the cors section of config.yaml. An empty
// AllowOrigins or one containing "*" allows every origin.
type CORSConfig struct {
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        time.Duration
}

// DefaultCORSConfig covers the methods and headers the API routes use.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", HeaderXRequestID},
		ExposeHeaders: []string{"Content-Length", HeaderXRequestID},
		MaxAge:        24 * time.Hour,
	}
}

// NewCORSConfig overrides the default origins and preflight max age. Zero
// values keep the defaults.
func NewCORSConfig(origins []string, maxAge time.Duration) CORSConfig {
	cfg := DefaultCORSConfig()
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	}
	if maxAge > 0 {
		cfg.MaxAge = maxAge
	}
	return cfg
}

// CORS answers preflight requests with 204. Requests from an origin outside
// the allow list get no Access-Control-Allow-Origin header.
func CORS(config CORSConfig) gin.HandlerFunc {
	anyOrigin := len(config.AllowOrigins) == 0
	allowed := make(map[string]struct{}, len(config.AllowOrigins))
	for _, o := range config.AllowOrigins {
		if o == "*" {
			anyOrigin = true
		}
		allowed[o] = struct{}{}
	}

	methods := strings.Join(config.AllowMethods, ", ")
	headers := strings.Join(config.AllowHeaders, ", ")
	expose := strings.Join(config.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(int(config.MaxAge / time.Second))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		switch {
		case anyOrigin:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "":
			c.Header("Vary", "Origin")
			if _, ok := allowed[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Expose-Headers", expose)
		c.Header("Access-Control-Max-Age", maxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
