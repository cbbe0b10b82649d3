package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
)

type doctorRepository struct {
	q querier
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (name, specialization, city, experience, rating, fee, mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.q.QueryRowxContext(ctx, query,
		doctor.Name,
		doctor.Specialization,
		doctor.City,
		doctor.Experience,
		doctor.Rating,
		doctor.Fee,
		doctor.Mode,
	).Scan(&doctor.ID)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id int64) (*model.Doctor, error) {
	var doctor model.Doctor
	query := `
		SELECT id, name, specialization, city, experience, rating, fee, mode
		FROM doctors
		WHERE id = $1
	`
	if err := r.q.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, notFound(err)
	}
	return &doctor, nil
}

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	var doctors []*model.Doctor
	query := `
		SELECT id, name, specialization, city, experience, rating, fee, mode
		FROM doctors
		ORDER BY id ASC
	`
	if err := r.q.SelectContext(ctx, &doctors, query); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors
		SET name = $1, specialization = $2, city = $3, experience = $4,
		    rating = $5, fee = $6, mode = $7
		WHERE id = $8
	`
	result, err := r.q.ExecContext(ctx, query,
		doctor.Name,
		doctor.Specialization,
		doctor.City,
		doctor.Experience,
		doctor.Rating,
		doctor.Fee,
		doctor.Mode,
		doctor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
