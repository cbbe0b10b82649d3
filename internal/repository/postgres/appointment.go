package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
)

type appointmentRepository struct {
	q querier
}

const appointmentColumns = `
	id, doctor_id, patient_id, date, mode, disease, age,
	status, medicine, notes, created_at, updated_at
`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			doctor_id, patient_id, date, mode, disease, age, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		appointment.DoctorID,
		appointment.PatientID,
		appointment.ScheduledDate,
		appointment.Mode,
		appointment.Disease,
		appointment.PatientAge,
		appointment.Status,
	).Scan(&appointment.ID, &appointment.CreatedAt, &appointment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.get(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
}

func (r *appointmentRepository) GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.get(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
}

func (r *appointmentRepository) get(ctx context.Context, query string, id int64) (*model.Appointment, error) {
	var appointment model.Appointment
	if err := r.q.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, notFound(err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET date = $1, mode = $2, disease = $3, age = $4,
		    status = $5, medicine = $6, notes = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`
	err := r.q.QueryRowxContext(ctx, query,
		appointment.ScheduledDate,
		appointment.Mode,
		appointment.Disease,
		appointment.PatientAge,
		appointment.Status,
		appointment.Medicine,
		appointment.Notes,
		appointment.ID,
	).Scan(&appointment.UpdatedAt)
	if err == sql.ErrNoRows {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

type appointmentRow struct {
	model.Appointment
	DoctorName  sql.NullString `db:"doctor_name"`
	PatientName sql.NullString `db:"patient_name"`
	Reports     pq.StringArray `db:"reports"`
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentDetails, error) {
	query := `
		SELECT a.id, a.doctor_id, a.patient_id, a.date, a.mode, a.disease, a.age,
		       a.status, a.medicine, a.notes, a.created_at, a.updated_at,
		       d.name AS doctor_name, u.name AS patient_name,
		       COALESCE(
		           (SELECT array_agg(rp.filename ORDER BY rp.id) FROM reports rp WHERE rp.appointment_id = a.id),
		           '{}'
		       ) AS reports
		FROM appointments a
		LEFT JOIN doctors d ON a.doctor_id = d.id
		LEFT JOIN users u ON a.patient_id = u.id
		WHERE 1 = 1
	`
	var args []interface{}
	argCount := 1

	if filters != nil {
		if filters.DoctorID != 0 {
			query += fmt.Sprintf(" AND a.doctor_id = $%d", argCount)
			args = append(args, filters.DoctorID)
			argCount++
		}
		if filters.PatientID != 0 {
			query += fmt.Sprintf(" AND a.patient_id = $%d", argCount)
			args = append(args, filters.PatientID)
			argCount++
		}
		if len(filters.Statuses) > 0 {
			statuses := make([]string, len(filters.Statuses))
			for i, s := range filters.Statuses {
				statuses[i] = string(s)
			}
			query += fmt.Sprintf(" AND a.status = ANY($%d)", argCount)
			args = append(args, pq.Array(statuses))
			argCount++
		}
	}

	query += " ORDER BY a.date DESC, a.id DESC"

	var rows []appointmentRow
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	out := make([]*model.AppointmentDetails, 0, len(rows))
	for _, row := range rows {
		reports := []string(row.Reports)
		if reports == nil {
			reports = []string{}
		}
		out = append(out, &model.AppointmentDetails{
			Appointment: row.Appointment,
			DoctorName:  row.DoctorName.String,
			PatientName: row.PatientName.String,
			Reports:     reports,
		})
	}
	return out, nil
}
