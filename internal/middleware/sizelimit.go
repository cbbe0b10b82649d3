package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
	"github.com/jwalitptl/mediconnect-api/pkg/httputil"
)

// SizeLimitConfig represents size limit configuration
type SizeLimitConfig struct {
	MaxBodySize int64 // in bytes
}

func DefaultSizeLimitConfig() SizeLimitConfig {
	return SizeLimitConfig{
		MaxBodySize: 1 << 20, // 1MB
	}
}

// SizeLimit rejects declared bodies over MaxBodySize and caps the reader
// for chunked ones.
func SizeLimit(config SizeLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > config.MaxBodySize {
			httputil.RespondWithError(c, apperrors.NewValidation(
				fmt.Sprintf("request body exceeds %d bytes", config.MaxBodySize), nil))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxBodySize)
		}
		c.Next()
	}
}
