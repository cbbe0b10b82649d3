package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
)

type userRepository struct{ s *Store }

func (r *userRepository) Create(_ context.Context, user *model.User) error {
	defer r.s.lock()()
	st := r.s.state()
	user.ID = st.next("users")
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.s.now()
	}
	st.users[user.ID] = *user
	return nil
}

func (r *userRepository) Get(_ context.Context, id int64) (*model.User, error) {
	defer r.s.lock()()
	u, ok := r.s.state().users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) FirstByRole(_ context.Context, role model.Role) (*model.User, error) {
	defer r.s.lock()()
	var first *model.User
	for _, u := range r.s.state().users {
		if u.Role != role {
			continue
		}
		if first == nil || u.ID < first.ID {
			u := u
			first = &u
		}
	}
	if first == nil {
		return nil, repository.ErrNotFound
	}
	return first, nil
}

func (r *userRepository) Count(_ context.Context) (int, error) {
	defer r.s.lock()()
	return len(r.s.state().users), nil
}

func (r *userRepository) ListExcludingRole(_ context.Context, role model.Role) ([]*model.User, error) {
	defer r.s.lock()()
	users := []*model.User{}
	for _, u := range r.s.state().users {
		if u.Role == role {
			continue
		}
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type doctorRepository struct{ s *Store }

func (r *doctorRepository) Create(_ context.Context, doctor *model.Doctor) error {
	defer r.s.lock()()
	st := r.s.state()
	doctor.ID = st.next("doctors")
	st.doctors[doctor.ID] = *doctor
	return nil
}

func (r *doctorRepository) Get(_ context.Context, id int64) (*model.Doctor, error) {
	defer r.s.lock()()
	d, ok := r.s.state().doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *doctorRepository) List(_ context.Context) ([]*model.Doctor, error) {
	defer r.s.lock()()
	doctors := make([]*model.Doctor, 0, len(r.s.state().doctors))
	for _, d := range r.s.state().doctors {
		d := d
		doctors = append(doctors, &d)
	}
	sort.Slice(doctors, func(i, j int) bool { return doctors[i].ID < doctors[j].ID })
	return doctors, nil
}

func (r *doctorRepository) Update(_ context.Context, doctor *model.Doctor) error {
	defer r.s.lock()()
	st := r.s.state()
	if _, ok := st.doctors[doctor.ID]; !ok {
		return repository.ErrNotFound
	}
	st.doctors[doctor.ID] = *doctor
	return nil
}

type appointmentRepository struct{ s *Store }

func (r *appointmentRepository) Create(_ context.Context, appointment *model.Appointment) error {
	defer r.s.lock()()
	st := r.s.state()
	appointment.ID = st.next("appointments")
	now := r.s.now()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	st.appointments[appointment.ID] = *appointment
	return nil
}

func (r *appointmentRepository) Get(_ context.Context, id int64) (*model.Appointment, error) {
	defer r.s.lock()()
	a, ok := r.s.state().appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

// GetForUpdate relies on the store-wide mutex held by WithTx.
func (r *appointmentRepository) GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.Get(ctx, id)
}

func (r *appointmentRepository) Update(_ context.Context, appointment *model.Appointment) error {
	defer r.s.lock()()
	st := r.s.state()
	existing, ok := st.appointments[appointment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	appointment.CreatedAt = existing.CreatedAt
	appointment.UpdatedAt = r.s.now()
	st.appointments[appointment.ID] = *appointment
	return nil
}

func (r *appointmentRepository) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentDetails, error) {
	defer r.s.lock()()
	st := r.s.state()

	var out []*model.AppointmentDetails
	for _, a := range st.appointments {
		if filters != nil && !matches(&a, filters) {
			continue
		}
		d := &model.AppointmentDetails{Appointment: a, Reports: []string{}}
		if doc, ok := st.doctors[a.DoctorID]; ok {
			d.DoctorName = doc.Name
		}
		if u, ok := st.users[a.PatientID]; ok {
			d.PatientName = u.Name
		}
		for _, rep := range sortedReports(st, a.ID) {
			d.Reports = append(d.Reports, rep.Filename)
		}
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledDate != out[j].ScheduledDate {
			return out[i].ScheduledDate > out[j].ScheduledDate
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func matches(a *model.Appointment, f *model.AppointmentFilters) bool {
	if f.DoctorID != 0 && a.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != 0 && a.PatientID != f.PatientID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if a.Status == s {
			return true
		}
	}
	return false
}

func sortedReports(st *state, appointmentID int64) []model.Report {
	var reports []model.Report
	for _, rep := range st.reports {
		if rep.AppointmentID == appointmentID {
			reports = append(reports, rep)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })
	return reports
}

type notificationRepository struct{ s *Store }

func (r *notificationRepository) Create(_ context.Context, n *model.Notification) error {
	defer r.s.lock()()
	st := r.s.state()
	n.ID = st.next("notifications")
	n.IsRead = false
	n.CreatedAt = r.s.now()
	st.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepository) MarkRead(_ context.Context, id, userID int64) (bool, error) {
	defer r.s.lock()()
	st := r.s.state()
	n, ok := st.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	st.notifications[id] = n
	return true, nil
}

func (r *notificationRepository) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	defer r.s.lock()()
	st := r.s.state()
	var deleted int64
	for id, n := range st.notifications {
		if n.UserID == userID {
			delete(st.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *notificationRepository) CountUnread(_ context.Context, userID int64) (int, error) {
	defer r.s.lock()()
	count := 0
	for _, n := range r.s.state().notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepository) ListByUser(_ context.Context, userID int64, limit int) ([]*model.Notification, error) {
	defer r.s.lock()()
	var out []*model.Notification
	for _, n := range r.s.state().notifications {
		if n.UserID == userID {
			n := n
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type reportRepository struct{ s *Store }

func (r *reportRepository) Create(_ context.Context, report *model.Report) error {
	defer r.s.lock()()
	st := r.s.state()
	report.ID = st.next("reports")
	report.UploadedAt = r.s.now()
	st.reports[report.ID] = *report
	return nil
}

func (r *reportRepository) ListByAppointment(_ context.Context, appointmentID int64) ([]*model.Report, error) {
	defer r.s.lock()()
	var out []*model.Report
	for _, rep := range sortedReports(r.s.state(), appointmentID) {
		rep := rep
		out = append(out, &rep)
	}
	return out, nil
}

type outboxRepository struct{ s *Store }

func (r *outboxRepository) Create(_ context.Context, event *model.OutboxEvent) error {
	defer r.s.lock()()
	st := r.s.state()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := r.s.now()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = now
	event.UpdatedAt = now
	st.outbox[event.ID] = *event
	st.outboxOrder = append(st.outboxOrder, event.ID)
	return nil
}

func (r *outboxRepository) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	defer r.s.lock()()
	st := r.s.state()
	now := r.s.now()
	var out []*model.OutboxEvent
	for _, id := range st.outboxOrder {
		if limit > 0 && len(out) >= limit {
			break
		}
		e, ok := st.outbox[id]
		if !ok || e.Status != model.OutboxStatusPending {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		out = append(out, &e)
	}
	return out, nil
}

func (r *outboxRepository) MarkProcessed(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	st := r.s.state()
	e, ok := st.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := r.s.now()
	e.Status = model.OutboxStatusProcessed
	e.ProcessedAt = &now
	e.UpdatedAt = now
	st.outbox[id] = e
	return nil
}

func (r *outboxRepository) MarkFailed(_ context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error {
	defer r.s.lock()()
	st := r.s.state()
	e, ok := st.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.RetryCount++
	e.ErrorMessage = &errorMessage
	e.RetryAt = retryAt
	e.UpdatedAt = r.s.now()
	if retryAt == nil {
		e.Status = model.OutboxStatusFailed
	}
	st.outbox[id] = e
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	defer r.s.lock()()
	st := r.s.state()
	var deleted int64
	kept := st.outboxOrder[:0]
	for _, id := range st.outboxOrder {
		e := st.outbox[id]
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(st.outbox, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	st.outboxOrder = kept
	return deleted, nil
}
