package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/mediconnect-api/internal/model"
)

type reportRepository struct {
	q querier
}

func (r *reportRepository) Create(ctx context.Context, report *model.Report) error {
	query := `
		INSERT INTO reports (appointment_id, filename)
		VALUES ($1, $2)
		RETURNING id, uploaded_at
	`
	err := r.q.QueryRowxContext(ctx, query, report.AppointmentID, report.Filename).
		Scan(&report.ID, &report.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *reportRepository) ListByAppointment(ctx context.Context, appointmentID int64) ([]*model.Report, error) {
	query := `
		SELECT id, appointment_id, filename, uploaded_at
		FROM reports
		WHERE appointment_id = $1
		ORDER BY id ASC
	`
	var reports []*model.Report
	if err := r.q.SelectContext(ctx, &reports, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}
