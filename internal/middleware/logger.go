package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/mediconnect-api/pkg/metrics"
)

// Logger logs every request once it completes and records the HTTP
// metrics. Request bodies are never logged since they carry patient data.
func Logger(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		latency := time.Since(start)
		method := c.Request.Method
		statusCode := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if m != nil {
			m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, route).Observe(latency.Seconds())
		}

		if raw != "" {
			path = path + "?" + raw
		}

		var event *zerolog.Event
		msg := "Request processed"
		switch {
		case statusCode >= 500:
			event, msg = log.Error(), "Server error"
		case statusCode >= 400:
			event, msg = log.Warn(), "Client error"
		default:
			event = log.Info()
		}

		if actor, ok := ActorFrom(c); ok {
			event = event.Int64("actor_id", actor.UserID).Str("actor_role", string(actor.Role))
		}

		event.
			Str("request_id", c.GetString(ContextRequestID)).
			Str("method", method).
			Str("path", path).
			Str("ip", c.ClientIP()).
			Int("status", statusCode).
			Dur("duration", latency).
			Str("user_agent", c.Request.UserAgent()).
			Msg(msg)
	}
}
