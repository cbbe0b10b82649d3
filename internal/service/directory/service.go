// Package directory serves the account side of the app: a doctor's own
// profile and the admin view of non-admin users.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
	"github.com/jwalitptl/mediconnect-api/pkg/logger"
	"github.com/jwalitptl/mediconnect-api/pkg/validator"
)

type Service struct {
	store    repository.Store
	validate validator.Validator
	logger   *logger.Logger
}

func NewService(store repository.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:    store,
		validate: validator.New(),
		logger:   log,
	}
}

// Profile returns the doctor record linked to the actor's user account.
func (s *Service) Profile(ctx context.Context, actor model.Actor) (*model.Doctor, error) {
	doctorID, err := linkedDoctor(ctx, s.store, actor)
	if err != nil {
		return nil, err
	}
	doctor, err := s.store.Doctors().Get(ctx, doctorID)
	if err != nil {
		return nil, doctorErr(err)
	}
	return doctor, nil
}

// UpdateProfile overwrites the editable fields of the actor's linked doctor
// record. Doctors without a linked record get NotFound; admins manage the
// directory itself.
func (s *Service) UpdateProfile(ctx context.Context, actor model.Actor, req model.UpdateDoctorProfileRequest) (*model.Doctor, error) {
	if err := s.validate.Validate(&req); err != nil {
		return nil, err
	}

	var doctor *model.Doctor
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		doctorID, err := linkedDoctor(ctx, tx, actor)
		if err != nil {
			return err
		}
		doctor = &model.Doctor{
			ID:             doctorID,
			Name:           req.Name,
			Specialization: req.Specialization,
			City:           req.City,
			Experience:     req.Experience,
			Rating:         req.Rating,
			Fee:            req.Fee,
			Mode:           req.Mode,
		}
		if err := tx.Doctors().Update(ctx, doctor); err != nil {
			return doctorErr(err)
		}
		return nil
	})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrInternal {
			s.logger.Error(err, "Doctor profile update failed", "user_id", actor.UserID)
		}
		return nil, err
	}

	s.logger.Info("Doctor profile updated",
		"user_id", actor.UserID,
		"doctor_id", doctor.ID)
	return doctor, nil
}

// Users lists every non-admin account. Only admins may call it.
func (s *Service) Users(ctx context.Context, actor model.Actor) ([]*model.User, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.NewNotOwner("only admins can list users")
	}
	users, err := s.store.Users().ListExcludingRole(ctx, model.RoleAdmin)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return users, nil
}

// linkedDoctor resolves the doctor record through users.doctor_id.
func linkedDoctor(ctx context.Context, store repository.Store, actor model.Actor) (int64, error) {
	if actor.Role != model.RoleDoctor {
		return 0, apperrors.NewNotOwner("only doctors have a profile")
	}
	user, err := store.Users().Get(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperrors.Unauthorized(fmt.Errorf("user %d does not exist", actor.UserID))
		}
		return 0, apperrors.NewInternal(err)
	}
	if user.Role != model.RoleDoctor {
		return 0, apperrors.Unauthorized(fmt.Errorf("user %d does not hold role %s", actor.UserID, actor.Role))
	}
	if user.DoctorID == nil {
		return 0, apperrors.NewNotFound("doctor profile", nil)
	}
	return *user.DoctorID, nil
}

func doctorErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("doctor profile", err)
	}
	return apperrors.NewInternal(err)
}
