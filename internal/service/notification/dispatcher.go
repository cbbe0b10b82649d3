// Package notification turns appointment events into persisted in-app
// notifications and serves the per-user notification queries.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
	"github.com/jwalitptl/mediconnect-api/pkg/logger"
	"github.com/jwalitptl/mediconnect-api/pkg/metrics"
)

// DefaultRecentLimit is how many notifications Recent returns when no limit
// is given.
const DefaultRecentLimit = 6

// Event labels used in logs and metrics.
const (
	EventBooked         = "booked"
	EventConfirmed      = "confirmed"
	EventCompleted      = "completed"
	EventCancelled      = "cancelled"
	EventReportAttached = "report_attached"
)

type delivery struct {
	userID  int64
	message string
}

type Dispatcher struct {
	store   repository.Store
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(store repository.Store, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		store:   store,
		logger:  log,
		metrics: m,
	}
}

// EventName returns the routing label of a transition, or "" for edges that
// notify nobody.
func EventName(event model.TransitionEvent) string {
	switch event.To {
	case model.AppointmentStatusBooked:
		return EventBooked
	case model.AppointmentStatusConfirmed:
		return EventConfirmed
	case model.AppointmentStatusCompleted:
		return EventCompleted
	case model.AppointmentStatusCancelled:
		return EventCancelled
	}
	return ""
}

// Dispatch persists the notifications for one committed transition and
// returns their ids. Recipients that do not resolve are skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.TransitionEvent) ([]int64, error) {
	name := EventName(event)
	if name == "" {
		return nil, nil
	}

	var ids []int64
	err := d.store.WithTx(ctx, func(tx repository.Store) error {
		deliveries, err := d.routeTransition(ctx, tx, name, event)
		if err != nil {
			return err
		}
		ids, err = d.persist(ctx, tx, deliveries)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch %s for appointment %d: %w", name, event.AppointmentID, err)
	}

	d.metrics.NotificationsPersisted(name, len(ids))
	d.logger.Debug("Dispatched notifications",
		"event", name,
		"appointment_id", event.AppointmentID,
		"count", len(ids))
	return ids, nil
}

// DispatchReport notifies the first doctor account and the appointment's
// patient that a report was attached.
func (d *Dispatcher) DispatchReport(ctx context.Context, event model.ReportAttachedEvent) ([]int64, error) {
	var ids []int64
	err := d.store.WithTx(ctx, func(tx repository.Store) error {
		appointment, err := tx.Appointments().Get(ctx, event.AppointmentID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var deliveries []delivery
		if doctorUserID, ok, err := firstDoctor(ctx, tx); err != nil {
			return err
		} else if ok {
			deliveries = append(deliveries, delivery{
				userID:  doctorUserID,
				message: fmt.Sprintf("New report uploaded for appointment #%d.", event.AppointmentID),
			})
		}
		deliveries = append(deliveries, delivery{
			userID:  appointment.PatientID,
			message: fmt.Sprintf("Report uploaded for appointment #%d.", event.AppointmentID),
		})

		ids, err = d.persist(ctx, tx, deliveries)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch %s for appointment %d: %w", EventReportAttached, event.AppointmentID, err)
	}

	d.metrics.NotificationsPersisted(EventReportAttached, len(ids))
	return ids, nil
}

func (d *Dispatcher) routeTransition(ctx context.Context, tx repository.Store, name string, event model.TransitionEvent) ([]delivery, error) {
	id := event.AppointmentID

	if name == EventCancelled {
		// Cancellations go to the first doctor account, not the assigned one.
		doctorUserID, ok, err := firstDoctor(ctx, tx)
		if err != nil || !ok {
			return nil, err
		}
		return []delivery{{
			userID:  doctorUserID,
			message: fmt.Sprintf("Appointment #%d was cancelled by patient.", id),
		}}, nil
	}

	appointment, err := tx.Appointments().Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var message string
	switch name {
	case EventBooked:
		message = fmt.Sprintf("Appointment #%d booked successfully.", id)
	case EventConfirmed:
		message = fmt.Sprintf("Your appointment #%d has been Confirmed by the doctor.", id)
	case EventCompleted:
		message = fmt.Sprintf("Your appointment #%d marked Completed and medicine prescribed.", id)
	}
	return []delivery{{userID: appointment.PatientID, message: message}}, nil
}

func firstDoctor(ctx context.Context, tx repository.Store) (int64, bool, error) {
	user, err := tx.Users().FirstByRole(ctx, model.RoleDoctor)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return user.ID, true, nil
}

// persist writes each notification together with its outbox event.
func (d *Dispatcher) persist(ctx context.Context, tx repository.Store, deliveries []delivery) ([]int64, error) {
	ids := make([]int64, 0, len(deliveries))
	for _, del := range deliveries {
		n := &model.Notification{UserID: del.userID, Message: del.message}
		if err := tx.Notifications().Create(ctx, n); err != nil {
			return nil, err
		}

		payload, err := json.Marshal(model.NotificationCreated{
			ID:        n.ID,
			UserID:    n.UserID,
			Message:   n.Message,
			CreatedAt: n.CreatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notification event: %w", err)
		}
		if err := tx.Outbox().Create(ctx, &model.OutboxEvent{
			EventType: model.EventNotificationCreated,
			Payload:   payload,
		}); err != nil {
			return nil, err
		}
		ids = append(ids, n.ID)
	}
	return ids, nil
}

// MarkRead flips the notification to read only when it belongs to userID.
// It reports whether a row changed; a foreign or missing id is not an error.
func (d *Dispatcher) MarkRead(ctx context.Context, id, userID int64) (bool, error) {
	changed, err := d.store.Notifications().MarkRead(ctx, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return changed, nil
}

// ClearAll deletes every notification of userID. Clearing an empty list
// succeeds.
func (d *Dispatcher) ClearAll(ctx context.Context, userID int64) (int64, error) {
	deleted, err := d.store.Notifications().DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("clear notifications of user %d: %w", userID, err)
	}
	return deleted, nil
}

func (d *Dispatcher) UnreadCount(ctx context.Context, userID int64) (int, error) {
	count, err := d.store.Notifications().CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications of user %d: %w", userID, err)
	}
	return count, nil
}

// Recent returns the newest notifications of userID, DefaultRecentLimit
// when limit is not positive.
func (d *Dispatcher) Recent(ctx context.Context, userID int64, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	notifications, err := d.store.Notifications().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications of user %d: %w", userID, err)
	}
	if notifications == nil {
		notifications = []*model.Notification{}
	}
	return notifications, nil
}
