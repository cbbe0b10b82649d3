package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
)

func TestAppError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("confirm: %w", apperrors.NewInvalidTransition(model.AppointmentStatusCompleted, model.AppointmentStatusConfirmed))

	assert.ErrorIs(t, err, apperrors.InvalidTransitionError)
	assert.NotErrorIs(t, err, apperrors.AlreadyTerminalError)
	assert.Equal(t, apperrors.ErrInvalidTransition, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.ErrInternal, apperrors.CodeOf(errors.New("plain")))
}

func TestAppError_Messages(t *testing.T) {
	assert.Equal(t, "cannot move appointment from none to Confirmed",
		apperrors.NewInvalidTransition(model.AppointmentStatusNone, model.AppointmentStatusConfirmed).Error())
	assert.Equal(t, "appointment is already Cancelled",
		apperrors.NewAlreadyTerminal(model.AppointmentStatusCancelled).Error())

	cause := errors.New("no rows")
	err := apperrors.NewNotFound("appointment", cause)
	assert.Equal(t, "appointment not found: no rows", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestAppError_StatusCode(t *testing.T) {
	tests := []struct {
		err  *apperrors.AppError
		want int
		code string
	}{
		{apperrors.NewValidation("bad", nil), http.StatusBadRequest, "validation_error"},
		{apperrors.NewNotFound("appointment", nil), http.StatusNotFound, "not_found"},
		{apperrors.Unauthorized(nil), http.StatusUnauthorized, "unauthorized"},
		{apperrors.NewNotOwner("no"), http.StatusForbidden, "not_owner"},
		{apperrors.NewInvalidTransition(model.AppointmentStatusBooked, model.AppointmentStatusBooked), http.StatusConflict, "invalid_transition"},
		{apperrors.NewAlreadyTerminal(model.AppointmentStatusCompleted), http.StatusConflict, "already_terminal"},
		{apperrors.NewInternal(errors.New("db down")), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
			assert.Equal(t, tt.code, tt.err.Code.String())
		})
	}
}
