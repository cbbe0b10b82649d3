package appointment

import (
	"context"
	"errors"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
	"github.com/jwalitptl/mediconnect-api/internal/service/policy"
	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
)

var (
	activeStatuses  = []model.AppointmentStatus{model.AppointmentStatusBooked, model.AppointmentStatusConfirmed}
	historyStatuses = []model.AppointmentStatus{model.AppointmentStatusCompleted, model.AppointmentStatusCancelled}
)

// Get returns one appointment with its names and report filenames. The
// patient, the assigned doctor and admins may read it.
func (s *Service) Get(ctx context.Context, actor model.Actor, id int64) (*model.AppointmentDetails, error) {
	actor, err := resolveActor(ctx, s.store, actor)
	if err != nil {
		return nil, err
	}
	appointment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	details := &model.AppointmentDetails{Appointment: *appointment, Reports: []string{}}
	if doctor, err := s.store.Doctors().Get(ctx, appointment.DoctorID); err == nil {
		details.DoctorName = doctor.Name
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternal(err)
	}
	if patient, err := s.store.Users().Get(ctx, appointment.PatientID); err == nil {
		details.PatientName = patient.Name
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternal(err)
	}

	reports, err := s.store.Reports().ListByAppointment(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	for _, r := range reports {
		details.Reports = append(details.Reports, r.Filename)
	}
	return details, nil
}

// ListReports returns the reports attached to an appointment in upload
// order.
func (s *Service) ListReports(ctx context.Context, actor model.Actor, id int64) ([]*model.Report, error) {
	actor, err := resolveActor(ctx, s.store, actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}

	reports, err := s.store.Reports().ListByAppointment(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if reports == nil {
		reports = []*model.Report{}
	}
	return reports, nil
}

func (s *Service) load(ctx context.Context, actor model.Actor, id int64) (*model.Appointment, error) {
	appointment, err := s.store.Appointments().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("appointment", err)
		}
		return nil, apperrors.NewInternal(err)
	}
	if !policy.Authorize(actor, policy.ActionView, policy.OwnerOf(appointment)) {
		return nil, apperrors.NewNotOwner("not allowed to view this appointment")
	}
	return appointment, nil
}

// ListForPatient returns the actor's own appointments, newest date first.
func (s *Service) ListForPatient(ctx context.Context, actor model.Actor) ([]*model.AppointmentDetails, error) {
	actor, err := resolveActor(ctx, s.store, actor)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RolePatient {
		return nil, apperrors.NewNotOwner("only patients have a patient dashboard")
	}
	return s.list(ctx, &model.AppointmentFilters{PatientID: actor.UserID})
}

// ListForDoctor returns the appointments of the actor's linked doctor
// record. active selects Booked and Confirmed, otherwise Completed and
// Cancelled.
func (s *Service) ListForDoctor(ctx context.Context, actor model.Actor, active bool) ([]*model.AppointmentDetails, error) {
	actor, err := resolveActor(ctx, s.store, actor)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleDoctor || actor.DoctorID == nil {
		return nil, apperrors.NewNotOwner("account is not linked to a doctor")
	}

	statuses := historyStatuses
	if active {
		statuses = activeStatuses
	}
	return s.list(ctx, &model.AppointmentFilters{DoctorID: *actor.DoctorID, Statuses: statuses})
}

// ListAll returns every appointment. Admin only.
func (s *Service) ListAll(ctx context.Context, actor model.Actor) ([]*model.AppointmentDetails, error) {
	actor, err := resolveActor(ctx, s.store, actor)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.NewNotOwner("only admins can list every appointment")
	}
	return s.list(ctx, nil)
}

func (s *Service) list(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentDetails, error) {
	appointments, err := s.store.Appointments().List(ctx, filters)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if appointments == nil {
		appointments = []*model.AppointmentDetails{}
	}
	return appointments, nil
}
