package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/mediconnect-api/internal/model"
)

type userRepository struct {
	q querier
}

const userColumns = `id, name, email, password_hash, role, doctor_id, profile_pic, created_at`

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, doctor_id, profile_pic)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.DoctorID,
		user.ProfilePic,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.q.GetContext(ctx, &user, query, id); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) FirstByRole(ctx context.Context, role model.Role) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY id ASC LIMIT 1`
	if err := r.q.GetContext(ctx, &user, query, role); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *userRepository) ListExcludingRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	users := []*model.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE role != $1 ORDER BY id ASC`
	if err := r.q.SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
