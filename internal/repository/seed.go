package repository

import (
	"context"
	"fmt"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/pkg/security"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

var seedDoctors = []model.Doctor{
	{Name: "Sam Wallfolk", Specialization: "Clinical psychologist", City: "New York", Experience: 10, Rating: 5.0, Fee: 800, Mode: "Both"},
	{Name: "Sarah Legend", Specialization: "Child psychologist", City: "Chicago", Experience: 8, Rating: 4.8, Fee: 1200, Mode: "Offline"},
	{Name: "Ben Affleck", Specialization: "Military psychologist", City: "Los Angeles", Experience: 12, Rating: 4.6, Fee: 500, Mode: "Online"},
}

// Seed inserts the default doctors and the admin, patient and doctor
// accounts when the store has no users. The seeded doctor account acts as
// the first seeded doctor.
func Seed(ctx context.Context, store Store, hasher security.PasswordHasher) error {
	count, err := store.Users().Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := hasher.Hash(DefaultPassword)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	return store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.Doctors().List(ctx)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			for i := range seedDoctors {
				d := seedDoctors[i]
				if err := tx.Doctors().Create(ctx, &d); err != nil {
					return err
				}
				existing = append(existing, &d)
			}
		}
		linked := existing[0].ID

		users := []*model.User{
			{Name: "Admin User", Email: "admin@example.com", Role: model.RoleAdmin},
			{Name: "Test Patient", Email: "patient@example.com", Role: model.RolePatient},
			{Name: "Dr. Alice", Email: "doctor@example.com", Role: model.RoleDoctor, DoctorID: &linked},
		}
		for _, u := range users {
			u.PasswordHash = hash
			if err := tx.Users().Create(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
}
