package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/mediconnect-api/pkg/httputil"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// IdleTTL drops a client's limiter after it has been idle this long.
	IdleTTL time.Duration
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	config   RateLimiterConfig
	limiters *gocache.Cache
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 3 * time.Minute
	}
	return &RateLimiter{
		config:   config,
		limiters: gocache.New(config.IdleTTL, config.IdleTTL),
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	if v, found := rl.limiters.Get(key); found {
		limiter := v.(*rate.Limiter)
		// Refresh the idle timer.
		rl.limiters.SetDefault(key, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	if err := rl.limiters.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		// Lost the race to another request from the same client.
		if v, found := rl.limiters.Get(key); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.Response{
				Status:  "error",
				Code:    "rate_limited",
				Message: "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
