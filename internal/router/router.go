package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/mediconnect-api/internal/handler"
	"github.com/jwalitptl/mediconnect-api/internal/middleware"
	"github.com/jwalitptl/mediconnect-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	h             *handler.Handler
	appointmentH  Handler
	notificationH Handler
	doctorH       Handler
	userH         Handler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RequestTimeout   time.Duration
	MaxBodySize      int64
	CORSConfig       middleware.CORSConfig
	Metrics          *metrics.Metrics
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	h *handler.Handler,
	appointmentH Handler,
	notificationH Handler,
	doctorH Handler,
	userH Handler,
	config RouterConfig,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:        engine,
		auth:          auth,
		h:             h,
		appointmentH:  appointmentH,
		notificationH: notificationH,
		doctorH:       doctorH,
		userH:         userH,
	}

	// RequestID first so every later middleware can log it.
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(config.Metrics),
		middleware.ErrorHandler(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	if config.MaxBodySize > 0 {
		engine.Use(middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: config.MaxBodySize}))
	}

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	// Add version header
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
	}
	rg.GET("/metrics", r.h.MetricsHandler)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	r.appointmentH.RegisterRoutes(rg)
	r.notificationH.RegisterRoutes(rg)
	r.doctorH.RegisterRoutes(rg)
	r.userH.RegisterRoutes(rg)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
