package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestID adds a unique request ID to each request and attaches a logger
// carrying it to the request context, for zerolog.Ctx.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if request ID exists in header
		rid := c.GetHeader(HeaderXRequestID)
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.New().String()
		}

		c.Set(ContextRequestID, rid)
		c.Header(HeaderXRequestID, rid)

		reqLogger := log.With().Str(ContextRequestID, rid).Logger()
		c.Request = c.Request.WithContext(reqLogger.WithContext(c.Request.Context()))
		c.Next()
	}
}
