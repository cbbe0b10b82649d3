package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/mediconnect-api/internal/repository"
)

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Store is the postgres repository.Store. The zero-transaction Store runs
// every statement on the pool; WithTx hands fn a Store bound to one *sqlx.Tx.
type Store struct {
	db *sqlx.DB
	q  querier
	tx *sqlx.Tx
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, q: db}
}

// GetDB returns the database instance
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// WithTx executes a function within a transaction
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Store{db: s.db, q: tx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Users() repository.UserRepository                 { return &userRepository{q: s.q} }
func (s *Store) Doctors() repository.DoctorRepository             { return &doctorRepository{q: s.q} }
func (s *Store) Appointments() repository.AppointmentRepository   { return &appointmentRepository{q: s.q} }
func (s *Store) Notifications() repository.NotificationRepository { return &notificationRepository{q: s.q} }
func (s *Store) Reports() repository.ReportRepository             { return &reportRepository{q: s.q} }
func (s *Store) Outbox() repository.OutboxRepository              { return &outboxRepository{q: s.q} }

// notFound maps sql.ErrNoRows onto repository.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
