package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// TimeoutConfig represents timeout middleware configuration
type TimeoutConfig struct {
	Duration time.Duration
}

// DefaultTimeoutConfig returns default timeout configuration
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Duration: 30 * time.Second,
	}
}

// Timeout puts a deadline on the request context. Handlers run on the
// request goroutine; store calls observe the deadline through ctx.
func Timeout(config TimeoutConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.Duration <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), config.Duration)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
