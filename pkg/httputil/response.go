package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status   string      `json:"status"`
	Code     string      `json:"code,omitempty"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}, warnings ...string) {
	c.JSON(status, Response{
		Status:   "success",
		Data:     data,
		Warnings: warnings,
	})
}

// RespondWithError sends an error response. Errors without an AppError in
// their chain are reported as internal and their text is not exposed.
func RespondWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(ErrorResponse(err))
}

// ErrorResponse maps err to its HTTP status and body.
func ErrorResponse(err error) (int, Response) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, Response{
			Status:  "error",
			Code:    apperrors.ErrInternal.String(),
			Message: "internal server error",
		}
	}

	message := appErr.Message
	if appErr.Code == apperrors.ErrInternal {
		message = "internal server error"
	}
	return appErr.StatusCode(), Response{
		Status:  "error",
		Code:    appErr.Code.String(),
		Message: message,
	}
}
