package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/mediconnect-api/internal/middleware"
	"github.com/jwalitptl/mediconnect-api/internal/service/directory"
	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
	"github.com/jwalitptl/mediconnect-api/pkg/httputil"
)

// Handler serves the admin view of patient and doctor accounts.
type Handler struct {
	directory *directory.Service
}

func NewHandler(directory *directory.Service) *Handler {
	return &Handler{directory: directory}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users", h.ListUsers)
}

func (h *Handler) ListUsers(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	users, err := h.directory.Users(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, users)
}
