// Package appointment implements the appointment lifecycle: booking, the
// status transitions a doctor or patient may drive, report attachment and
// the dashboard reads. Each transition commits first and then notifies; a
// failed notification is reported as a warning on the Result.
package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
	"github.com/jwalitptl/mediconnect-api/internal/service/policy"
	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
	"github.com/jwalitptl/mediconnect-api/pkg/logger"
	"github.com/jwalitptl/mediconnect-api/pkg/metrics"
	"github.com/jwalitptl/mediconnect-api/pkg/validator"
)

// Dispatcher persists the notifications that follow a committed change.
type Dispatcher interface {
	Dispatch(ctx context.Context, event model.TransitionEvent) ([]int64, error)
	DispatchReport(ctx context.Context, event model.ReportAttachedEvent) ([]int64, error)
}

// Result is the outcome of a lifecycle operation that succeeded. Warnings
// carry side-effect failures that did not undo the change.
type Result[T any] struct {
	Value           T        `json:"value"`
	NotificationIDs []int64  `json:"notification_ids,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

type Service struct {
	store      repository.Store
	dispatcher Dispatcher
	validate   validator.Validator
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewService(store repository.Store, dispatcher Dispatcher, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		validate:   validator.New(),
		logger:     log,
		metrics:    m,
	}
}

// Book creates a Booked appointment for req.PatientID. Only that patient or
// an admin may book it.
func (s *Service) Book(ctx context.Context, actor model.Actor, req model.BookAppointmentRequest) (Result[*model.Appointment], error) {
	var res Result[*model.Appointment]
	if err := s.validate.Validate(&req); err != nil {
		return res, s.reject("book", err)
	}

	var appointment *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		actor, err := resolveActor(ctx, tx, actor)
		if err != nil {
			return err
		}
		if !policy.Authorize(actor, policy.ActionBook, policy.Owner{PatientID: req.PatientID}) {
			return apperrors.NewNotOwner("appointments can only be booked by the patient")
		}

		if _, err := tx.Doctors().Get(ctx, req.DoctorID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewValidation(fmt.Sprintf("doctor %d does not exist", req.DoctorID), err)
			}
			return apperrors.NewInternal(err)
		}
		patient, err := tx.Users().Get(ctx, req.PatientID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewValidation(fmt.Sprintf("patient %d does not exist", req.PatientID), err)
			}
			return apperrors.NewInternal(err)
		}
		if patient.Role != model.RolePatient {
			return apperrors.NewValidation(fmt.Sprintf("user %d is not a patient", req.PatientID), nil)
		}

		appointment = &model.Appointment{
			DoctorID:      req.DoctorID,
			PatientID:     req.PatientID,
			ScheduledDate: req.Date,
			Mode:          req.Mode,
			Disease:       req.Disease,
			PatientAge:    req.Age,
			Status:        model.AppointmentStatusBooked,
		}
		if err := tx.Appointments().Create(ctx, appointment); err != nil {
			return apperrors.NewInternal(err)
		}
		return nil
	})
	if err != nil {
		return res, s.reject("book", err)
	}

	res.Value = appointment
	s.committed(ctx, &res, model.TransitionEvent{
		AppointmentID: appointment.ID,
		From:          model.AppointmentStatusNone,
		To:            model.AppointmentStatusBooked,
		ActorRole:     actor.Role,
	})
	return res, nil
}

// Confirm moves a Booked appointment to Confirmed. Only the appointment's
// doctor or an admin may confirm.
func (s *Service) Confirm(ctx context.Context, actor model.Actor, id int64) (Result[*model.Appointment], error) {
	return s.transition(ctx, actor, id, transitionRule{
		operation: "confirm",
		action:    policy.ActionConfirm,
		to:        model.AppointmentStatusConfirmed,
	})
}

// Complete records the prescription and moves a Booked or Confirmed
// appointment to Completed.
func (s *Service) Complete(ctx context.Context, actor model.Actor, id int64, req model.CompleteAppointmentRequest) (Result[*model.Appointment], error) {
	if err := s.validate.Validate(&req); err != nil {
		return Result[*model.Appointment]{}, s.reject("complete", err)
	}
	return s.transition(ctx, actor, id, transitionRule{
		operation: "complete",
		action:    policy.ActionComplete,
		to:        model.AppointmentStatusCompleted,
		apply: func(a *model.Appointment) {
			medicine, notes := req.Medicine, req.Notes
			a.Medicine = &medicine
			a.Notes = &notes
		},
	})
}

// Cancel moves a Booked or Confirmed appointment to Cancelled. A terminal
// appointment fails with AlreadyTerminal whoever asks.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id int64) (Result[*model.Appointment], error) {
	return s.transition(ctx, actor, id, transitionRule{
		operation:     "cancel",
		action:        policy.ActionCancel,
		to:            model.AppointmentStatusCancelled,
		terminalFirst: true,
	})
}

type transitionRule struct {
	operation string
	action    policy.Action
	to        model.AppointmentStatus
	// terminalFirst reports AlreadyTerminal before checking ownership.
	terminalFirst bool
	apply         func(a *model.Appointment)
}

func (s *Service) transition(ctx context.Context, actor model.Actor, id int64, rule transitionRule) (Result[*model.Appointment], error) {
	var (
		res  Result[*model.Appointment]
		from model.AppointmentStatus
	)

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		actor, err := resolveActor(ctx, tx, actor)
		if err != nil {
			return err
		}

		appointment, err := tx.Appointments().GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("appointment", err)
			}
			return apperrors.NewInternal(err)
		}

		if rule.terminalFirst && appointment.Status.IsTerminal() {
			return apperrors.NewAlreadyTerminal(appointment.Status)
		}
		if !policy.Authorize(actor, rule.action, policy.OwnerOf(appointment)) {
			return apperrors.NewNotOwner(fmt.Sprintf("not allowed to %s appointment #%d", rule.operation, id))
		}
		if !model.CanTransition(appointment.Status, rule.to) {
			return apperrors.NewInvalidTransition(appointment.Status, rule.to)
		}

		from = appointment.Status
		appointment.Status = rule.to
		if rule.apply != nil {
			rule.apply(appointment)
		}
		if err := tx.Appointments().Update(ctx, appointment); err != nil {
			return apperrors.NewInternal(err)
		}
		res.Value = appointment
		return nil
	})
	if err != nil {
		return Result[*model.Appointment]{}, s.reject(rule.operation, err)
	}

	s.committed(ctx, &res, model.TransitionEvent{
		AppointmentID: id,
		From:          from,
		To:            rule.to,
		ActorRole:     actor.Role,
	})
	return res, nil
}

// committed records the transition and runs the dispatcher. A dispatch
// failure becomes a warning.
func (s *Service) committed(ctx context.Context, res *Result[*model.Appointment], event model.TransitionEvent) {
	s.metrics.TransitionCommitted(event.From.String(), event.To.String())
	s.logger.Info("Appointment transitioned",
		"appointment_id", event.AppointmentID,
		"from", event.From.String(),
		"to", event.To.String(),
		"actor_role", string(event.ActorRole))

	if s.dispatcher == nil {
		return
	}
	ids, err := s.dispatcher.Dispatch(ctx, event)
	if err != nil {
		res.Warnings = append(res.Warnings, s.dispatchWarning(event.AppointmentID, event.To.String(), err))
		return
	}
	res.NotificationIDs = ids
}

func (s *Service) dispatchWarning(appointmentID int64, event string, err error) string {
	s.metrics.DispatchFailed(event)
	s.logger.Warn(err, "Notification dispatch failed",
		"appointment_id", appointmentID,
		"event", event)
	return fmt.Sprintf("notification for appointment #%d could not be delivered", appointmentID)
}

// AttachReport appends a report to any existing appointment, whatever its
// status. Only the appointment's patient or an admin may attach.
func (s *Service) AttachReport(ctx context.Context, actor model.Actor, id int64, req model.AttachReportRequest) (Result[*model.Report], error) {
	var res Result[*model.Report]
	if err := s.validate.Validate(&req); err != nil {
		return res, s.reject("attach_report", err)
	}

	var report *model.Report
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		actor, err := resolveActor(ctx, tx, actor)
		if err != nil {
			return err
		}
		appointment, err := tx.Appointments().Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("appointment", err)
			}
			return apperrors.NewInternal(err)
		}
		if !policy.Authorize(actor, policy.ActionAttachReport, policy.OwnerOf(appointment)) {
			return apperrors.NewNotOwner(fmt.Sprintf("not allowed to attach reports to appointment #%d", id))
		}

		report = &model.Report{AppointmentID: id, Filename: req.Filename}
		if err := tx.Reports().Create(ctx, report); err != nil {
			return apperrors.NewInternal(err)
		}
		return nil
	})
	if err != nil {
		return res, s.reject("attach_report", err)
	}

	res.Value = report
	s.logger.Info("Report attached", "appointment_id", id, "report_id", report.ID)

	if s.dispatcher != nil {
		ids, err := s.dispatcher.DispatchReport(ctx, model.ReportAttachedEvent{
			AppointmentID: id,
			ReportID:      report.ID,
			ActorRole:     actor.Role,
		})
		if err != nil {
			res.Warnings = append(res.Warnings, s.dispatchWarning(id, "report_attached", err))
		} else {
			res.NotificationIDs = ids
		}
	}
	return res, nil
}

// UpdateDetails edits the descriptive fields of a Booked appointment. Only
// the booking patient or an admin may edit. No notification is sent.
func (s *Service) UpdateDetails(ctx context.Context, actor model.Actor, id int64, req model.UpdateAppointmentRequest) (*model.Appointment, error) {
	if err := s.validate.Validate(&req); err != nil {
		return nil, s.reject("update_details", err)
	}

	var appointment *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		actor, err := resolveActor(ctx, tx, actor)
		if err != nil {
			return err
		}
		appointment, err = tx.Appointments().GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("appointment", err)
			}
			return apperrors.NewInternal(err)
		}
		if !policy.Authorize(actor, policy.ActionUpdateDetails, policy.OwnerOf(appointment)) {
			return apperrors.NewNotOwner(fmt.Sprintf("not allowed to edit appointment #%d", id))
		}
		if appointment.Status != model.AppointmentStatusBooked {
			return &apperrors.AppError{
				Code:    apperrors.ErrInvalidTransition,
				Message: fmt.Sprintf("appointment details can only change while Booked, status is %s", appointment.Status),
			}
		}

		if req.Date != nil {
			appointment.ScheduledDate = *req.Date
		}
		if req.Mode != nil {
			appointment.Mode = *req.Mode
		}
		if req.Disease != nil {
			appointment.Disease = *req.Disease
		}
		if req.Age != nil {
			appointment.PatientAge = *req.Age
		}
		if err := tx.Appointments().Update(ctx, appointment); err != nil {
			return apperrors.NewInternal(err)
		}
		return nil
	})
	if err != nil {
		return nil, s.reject("update_details", err)
	}
	return appointment, nil
}

// reject counts a failed operation and makes sure err carries an AppError.
func (s *Service) reject(operation string, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		err = apperrors.NewInternal(err)
	}
	code := apperrors.CodeOf(err)
	s.metrics.TransitionRejected(operation, code.String())
	if code == apperrors.ErrInternal {
		s.logger.Error(err, "Appointment operation failed", "operation", operation)
	}
	return err
}

// resolveActor reloads the actor's user record and takes the linked doctor
// id from it.
func resolveActor(ctx context.Context, tx repository.Store, actor model.Actor) (model.Actor, error) {
	user, err := tx.Users().Get(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return actor, apperrors.Unauthorized(fmt.Errorf("user %d does not exist", actor.UserID))
		}
		return actor, apperrors.NewInternal(err)
	}
	if user.Role != actor.Role {
		return actor, apperrors.Unauthorized(fmt.Errorf("user %d does not hold role %s", actor.UserID, actor.Role))
	}

	actor.DoctorID = nil
	if user.Role == model.RoleDoctor {
		actor.DoctorID = user.DoctorID
	}
	return actor, nil
}
