package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/mediconnect-api/pkg/httputil"
)

// ErrorHandler renders the last error handlers attached with c.Error when
// nothing has been written yet.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only handle errors if they exist
		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Interface("meta", e.Meta).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}
		status, body := httputil.ErrorResponse(c.Errors.Last().Err)
		c.JSON(status, body)
	}
}
