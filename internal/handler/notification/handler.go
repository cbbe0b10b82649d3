package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/mediconnect-api/internal/middleware"
	"github.com/jwalitptl/mediconnect-api/internal/service/notification"
	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
	"github.com/jwalitptl/mediconnect-api/pkg/httputil"
)

type Handler struct {
	dispatcher *notification.Dispatcher
}

func NewHandler(dispatcher *notification.Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread_count", h.UnreadCount)
		notifications.POST("/:id/read", h.MarkRead)
		notifications.DELETE("", h.ClearAll)
	}
}

// ListNotifications returns the caller's newest notifications. limit
// defaults to notification.DefaultRecentLimit.
func (h *Handler) ListNotifications(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			httputil.RespondWithError(c, apperrors.NewValidation("limit must be between 1 and 100", err))
			return
		}
		limit = n
	}

	notifications, err := h.dispatcher.Recent(c.Request.Context(), actor.UserID, limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, notifications)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	count, err := h.dispatcher.UnreadCount(c.Request.Context(), actor.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"unread": count})
}

// MarkRead answers 404 for ids that are missing or belong to someone else.
func (h *Handler) MarkRead(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid notification ID", err))
		return
	}

	changed, err := h.dispatcher.MarkRead(c.Request.Context(), id, actor.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	// A foreign or missing id is a no-op, reported through changed.
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"id": id, "changed": changed})
}

func (h *Handler) ClearAll(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	deleted, err := h.dispatcher.ClearAll(c.Request.Context(), actor.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"deleted": deleted})
}
