package doctor

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/mediconnect-api/internal/middleware"
	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
	"github.com/jwalitptl/mediconnect-api/internal/service/directory"
	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
	"github.com/jwalitptl/mediconnect-api/pkg/httputil"
)

// Handler serves the bookable doctor directory and the doctor's own
// profile.
type Handler struct {
	doctors   repository.DoctorRepository
	directory *directory.Service
}

func NewHandler(doctors repository.DoctorRepository, directory *directory.Service) *Handler {
	return &Handler{doctors: doctors, directory: directory}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.GET("", h.ListDoctors)
		doctors.GET("/me", h.GetProfile)
		doctors.PUT("/me", h.UpdateProfile)
		doctors.GET("/:id", h.GetDoctor)
	}
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.doctors.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewInternal(err))
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doctors)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid doctor ID", err))
		return
	}

	doctor, err := h.doctors.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httputil.RespondWithError(c, apperrors.NewNotFound("doctor", err))
			return
		}
		httputil.RespondWithError(c, apperrors.NewInternal(err))
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doctor)
}

func (h *Handler) GetProfile(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	doctor, err := h.directory.Profile(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doctor)
}

// UpdateProfile replaces the caller's doctor record with the request body.
func (h *Handler) UpdateProfile(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	var req model.UpdateDoctorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid request body", err))
		return
	}

	doctor, err := h.directory.UpdateProfile(c.Request.Context(), actor, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doctor)
}
