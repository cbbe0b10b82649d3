package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
)

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	errBoom := errors.New("boom")
	err := store.WithTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Users().Create(ctx, &model.User{Name: "ghost", Role: model.RolePatient}))
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	count, err := store.Users().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Ids handed out inside the rolled back transaction are reused.
	u := &model.User{Name: "real", Role: model.RolePatient}
	require.NoError(t, store.Users().Create(ctx, u))
	assert.Equal(t, int64(1), u.ID)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	assert.Panics(t, func() {
		_ = store.WithTx(ctx, func(tx repository.Store) error {
			_ = tx.Doctors().Create(ctx, &model.Doctor{Name: "Dr. Panic"})
			panic("boom")
		})
	})

	doctors, err := store.Doctors().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, doctors)

	// The mutex was released.
	require.NoError(t, store.Doctors().Create(ctx, &model.Doctor{Name: "Dr. Calm"}))
}

func TestWithTx_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().WithTx(ctx, func(repository.Store) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWithTx_Nested(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.WithTx(ctx, func(tx repository.Store) error {
		return tx.WithTx(ctx, func(inner repository.Store) error {
			return inner.Doctors().Create(ctx, &model.Doctor{Name: "Dr. Nested"})
		})
	})
	require.NoError(t, err)

	doctors, err := store.Doctors().List(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 1)
}

func TestAppointments_ListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Doctors().Create(ctx, &model.Doctor{Name: "Sam Wallfolk"}))
	require.NoError(t, store.Users().Create(ctx, &model.User{Name: "Pat", Role: model.RolePatient}))

	for _, a := range []*model.Appointment{
		{DoctorID: 1, PatientID: 1, ScheduledDate: "2024-01-10", Status: model.AppointmentStatusBooked},
		{DoctorID: 1, PatientID: 1, ScheduledDate: "2024-03-01", Status: model.AppointmentStatusCompleted},
		{DoctorID: 2, PatientID: 1, ScheduledDate: "2024-02-01", Status: model.AppointmentStatusBooked},
	} {
		require.NoError(t, store.Appointments().Create(ctx, a))
	}
	require.NoError(t, store.Reports().Create(ctx, &model.Report{AppointmentID: 1, Filename: "a.pdf"}))
	require.NoError(t, store.Reports().Create(ctx, &model.Report{AppointmentID: 1, Filename: "b.png"}))

	all, err := store.Appointments().List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{all[0].ID, all[1].ID, all[2].ID})

	booked, err := store.Appointments().List(ctx, &model.AppointmentFilters{
		DoctorID: 1,
		Statuses: []model.AppointmentStatus{model.AppointmentStatusBooked},
	})
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, "Sam Wallfolk", booked[0].DoctorName)
	assert.Equal(t, "Pat", booked[0].PatientName)
	assert.Equal(t, []string{"a.pdf", "b.png"}, booked[0].Reports)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.Notifications()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &model.Notification{UserID: 1, Message: "m"}))
	}
	require.NoError(t, repo.Create(ctx, &model.Notification{UserID: 2, Message: "other"}))

	changed, err := repo.MarkRead(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, changed, "foreign notification")

	changed, err = repo.MarkRead(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, changed)

	unread, err := repo.CountUnread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	latest, err := repo.ListByUser(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(3), latest[0].ID)

	deleted, err := repo.DeleteByUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	unread, err = repo.CountUnread(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, err := store.Users().Get(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Appointments().Get(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Users().FirstByRole(ctx, model.RoleDoctor)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, store.Appointments().Update(ctx, &model.Appointment{ID: 9}), repository.ErrNotFound)
}

func TestOutbox_PendingEventsAreDistinctCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.Outbox()

	for _, kind := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &model.OutboxEvent{EventType: kind, Payload: []byte(`{}`)}))
	}

	events, err := repo.GetPendingEventsWithLock(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "first", events[0].EventType)
	assert.Equal(t, "second", events[1].EventType)
	assert.Equal(t, "third", events[2].EventType)
	assert.NotEqual(t, events[0].ID, events[1].ID)

	// Mutating a returned event leaves the stored row alone.
	events[0].EventType = "changed"
	again, err := repo.GetPendingEventsWithLock(ctx, 1)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "first", again[0].EventType)

	retryAt := store.now().Add(time.Hour)
	require.NoError(t, repo.MarkFailed(ctx, again[0].ID, "later", &retryAt))
	due, err := repo.GetPendingEventsWithLock(ctx, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "second", due[0].EventType)
}

func TestDoctorsUpdateAndUsersListing(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Doctors().Create(ctx, &model.Doctor{Name: "Ben Affleck", Mode: "Online"}))
	require.NoError(t, store.Doctors().Update(ctx, &model.Doctor{ID: 1, Name: "Ben Affleck", Mode: "Both"}))
	d, err := store.Doctors().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Both", d.Mode)
	assert.ErrorIs(t, store.Doctors().Update(ctx, &model.Doctor{ID: 5}), repository.ErrNotFound)

	for _, role := range []model.Role{model.RolePatient, model.RoleAdmin, model.RoleDoctor} {
		require.NoError(t, store.Users().Create(ctx, &model.User{Role: role}))
	}
	users, err := store.Users().ListExcludingRole(ctx, model.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(1), users[0].ID)
	assert.Equal(t, int64(3), users[1].ID)
}
