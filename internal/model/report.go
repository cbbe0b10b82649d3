package model

import "time"

type Report struct {
	ID            int64     `db:"id" json:"id"`
	AppointmentID int64     `db:"appointment_id" json:"appointment_id"`
	Filename      string    `db:"filename" json:"filename"`
	UploadedAt    time.Time `db:"uploaded_at" json:"uploaded_at"`
}

type AttachReportRequest struct {
	Filename string `json:"filename" validate:"required,max=255,report_ext"`
}
