package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/mediconnect-api/internal/model"
)

// ErrNotFound is returned by every repository lookup that matches no row.
var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	// Store groups the repositories and owns the transaction boundary.
	// Inside WithTx, fn receives a Store bound to the transaction; the
	// outer Store must not be used from fn.
	Store interface {
		Users() UserRepository
		Doctors() DoctorRepository
		Appointments() AppointmentRepository
		Notifications() NotificationRepository
		Reports() ReportRepository
		Outbox() OutboxRepository
		WithTx(ctx context.Context, fn func(tx Store) error) error
		Ping(ctx context.Context) error
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id int64) (*model.User, error)
		// FirstByRole returns the lowest-id user holding role.
		FirstByRole(ctx context.Context, role model.Role) (*model.User, error)
		Count(ctx context.Context) (int, error)
		// ListExcludingRole returns every user not holding role, by id.
		ListExcludingRole(ctx context.Context, role model.Role) ([]*model.User, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id int64) (*model.Doctor, error)
		List(ctx context.Context) ([]*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id int64) (*model.Appointment, error)
		// GetForUpdate locks the row until the surrounding transaction ends.
		GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentDetails, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		// MarkRead flips is_read for id only when it belongs to userID.
		MarkRead(ctx context.Context, id, userID int64) (bool, error)
		DeleteByUser(ctx context.Context, userID int64) (int64, error)
		CountUnread(ctx context.Context, userID int64) (int, error)
		ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Notification, error)
	}

	ReportRepository interface {
		Create(ctx context.Context, report *model.Report) error
		ListByAppointment(ctx context.Context, appointmentID int64) ([]*model.Report, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEventsWithLock claims up to limit due events.
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
