package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so callers can test
// against the exported sentinels with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// StatusCode is picked up by the HTTP error middleware.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrNotOwner:
		return http.StatusForbidden
	case ErrInvalidTransition, ErrAlreadyTerminal:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrValidation
	ErrUnauthorized
	ErrNotOwner
	ErrInternal
	ErrInvalidTransition
	ErrAlreadyTerminal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrValidation:
		return "validation_error"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrNotOwner:
		return "not_owner"
	case ErrInvalidTransition:
		return "invalid_transition"
	case ErrAlreadyTerminal:
		return "already_terminal"
	default:
		return "internal"
	}
}

// Sentinels for errors.Is.
var (
	NotFoundError          = &AppError{Code: ErrNotFound}
	ValidationError        = &AppError{Code: ErrValidation}
	UnauthorizedError      = &AppError{Code: ErrUnauthorized}
	NotOwnerError          = &AppError{Code: ErrNotOwner}
	InvalidTransitionError = &AppError{Code: ErrInvalidTransition}
	AlreadyTerminalError   = &AppError{Code: ErrAlreadyTerminal}
)

// CodeOf returns the code of the first AppError in err's chain, or
// ErrInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewValidation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func NewNotOwner(message string) *AppError {
	return &AppError{
		Code:    ErrNotOwner,
		Message: message,
	}
}

func NewInvalidTransition(from, to fmt.Stringer) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("cannot move appointment from %s to %s", from, to),
	}
}

func NewAlreadyTerminal(status fmt.Stringer) *AppError {
	return &AppError{
		Code:    ErrAlreadyTerminal,
		Message: fmt.Sprintf("appointment is already %s", status),
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}
