// Package memory is an in-process Store. A single mutex serializes every
// call, and WithTx holds it for the whole transaction and restores a snapshot
// when fn fails.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
)

type state struct {
	users         map[int64]model.User
	doctors       map[int64]model.Doctor
	appointments  map[int64]model.Appointment
	notifications map[int64]model.Notification
	reports       map[int64]model.Report
	outbox        map[uuid.UUID]model.OutboxEvent
	outboxOrder   []uuid.UUID
	seq           map[string]int64
}

func newState() *state {
	return &state{
		users:         make(map[int64]model.User),
		doctors:       make(map[int64]model.Doctor),
		appointments:  make(map[int64]model.Appointment),
		notifications: make(map[int64]model.Notification),
		reports:       make(map[int64]model.Report),
		outbox:        make(map[uuid.UUID]model.OutboxEvent),
		seq:           make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.doctors {
		c.doctors[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	for k, v := range s.reports {
		c.reports[k] = v
	}
	for k, v := range s.outbox {
		c.outbox[k] = v
	}
	c.outboxOrder = append([]uuid.UUID(nil), s.outboxOrder...)
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Store implements repository.Store.
type Store struct {
	mu   *sync.Mutex
	data **state
	inTx bool
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	data := newState()
	return &Store{
		mu:   &sync.Mutex{},
		data: &data,
		now:  time.Now,
	}
}

// lock is a no-op inside a transaction, which already holds the mutex.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) state() *state {
	return *s.data
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := (*s.data).clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true, now: s.now}

	defer func() {
		if p := recover(); p != nil {
			*s.data = snapshot
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		*s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Users() repository.UserRepository                 { return &userRepository{s} }
func (s *Store) Doctors() repository.DoctorRepository             { return &doctorRepository{s} }
func (s *Store) Appointments() repository.AppointmentRepository   { return &appointmentRepository{s} }
func (s *Store) Notifications() repository.NotificationRepository { return &notificationRepository{s} }
func (s *Store) Reports() repository.ReportRepository             { return &reportRepository{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return &outboxRepository{s} }
