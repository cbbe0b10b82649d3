package appointment

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/mediconnect-api/internal/middleware"
	"github.com/jwalitptl/mediconnect-api/internal/model"
	svc "github.com/jwalitptl/mediconnect-api/internal/service/appointment"
	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
	"github.com/jwalitptl/mediconnect-api/pkg/httputil"
)

type Handler struct {
	service *svc.Service
}

func NewHandler(service *svc.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.BookAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id", h.UpdateAppointment)
		appointments.POST("/:id/confirm", h.ConfirmAppointment)
		appointments.POST("/:id/complete", h.CompleteAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.POST("/:id/reports", h.AttachReport)
		appointments.GET("/:id/reports", h.ListReports)
	}
}

func (h *Handler) BookAppointment(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid request body", err))
		return
	}
	// Patients book for themselves unless the body says otherwise.
	if req.PatientID == 0 && actor.Role == model.RolePatient {
		req.PatientID = actor.UserID
	}

	res, err := h.service.Book(c.Request.Context(), actor, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, res.Value, res.Warnings...)
}

// ListAppointments serves the dashboard of the caller's role. Doctors pick
// scope=active (default) or scope=history.
func (h *Handler) ListAppointments(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var (
		appointments []*model.AppointmentDetails
		err          error
	)
	ctx := c.Request.Context()
	switch actor.Role {
	case model.RolePatient:
		appointments, err = h.service.ListForPatient(ctx, actor)
	case model.RoleDoctor:
		switch scope := c.DefaultQuery("scope", "active"); scope {
		case "active":
			appointments, err = h.service.ListForDoctor(ctx, actor, true)
		case "history":
			appointments, err = h.service.ListForDoctor(ctx, actor, false)
		default:
			err = apperrors.NewValidation("scope must be active or history", nil)
		}
	default:
		appointments, err = h.service.ListAll(ctx, actor)
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	appointment, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, appointment)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid request body", err))
		return
	}

	appointment, err := h.service.UpdateDetails(c.Request.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, appointment)
}

func (h *Handler) ConfirmAppointment(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	res, err := h.service.Confirm(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, res.Value, res.Warnings...)
}

// CompleteAppointment accepts an optional body with medicine and notes.
func (h *Handler) CompleteAppointment(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req model.CompleteAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid request body", err))
		return
	}

	res, err := h.service.Complete(c.Request.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, res.Value, res.Warnings...)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	res, err := h.service.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, res.Value, res.Warnings...)
}

func (h *Handler) AttachReport(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req model.AttachReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid request body", err))
		return
	}

	res, err := h.service.AttachReport(c.Request.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, res.Value, res.Warnings...)
}

func (h *Handler) ListReports(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	reports, err := h.service.ListReports(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if reports == nil {
		reports = []*model.Report{}
	}
	httputil.RespondWithSuccess(c, http.StatusOK, reports)
}

func actorOf(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
	}
	return actor, ok
}

func actorAndID(c *gin.Context) (model.Actor, int64, bool) {
	actor, ok := actorOf(c)
	if !ok {
		return model.Actor{}, 0, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid appointment ID", err))
		return model.Actor{}, 0, false
	}
	return actor, id, true
}
