package model

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusNone      AppointmentStatus = ""
	AppointmentStatusBooked    AppointmentStatus = "Booked"
	AppointmentStatusConfirmed AppointmentStatus = "Confirmed"
	AppointmentStatusCompleted AppointmentStatus = "Completed"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
)

// transitions lists every legal edge of the appointment state machine.
// Completing straight from Booked is allowed.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusNone:      {AppointmentStatusBooked},
	AppointmentStatusBooked:    {AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusBooked, AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID            int64             `db:"id" json:"id"`
	DoctorID      int64             `db:"doctor_id" json:"doctor_id"`
	PatientID     int64             `db:"patient_id" json:"patient_id"`
	ScheduledDate string            `db:"date" json:"date"`
	Mode          string            `db:"mode" json:"mode"`
	Disease       string            `db:"disease" json:"disease"`
	PatientAge    int               `db:"age" json:"age"`
	Status        AppointmentStatus `db:"status" json:"status"`
	Medicine      *string           `db:"medicine" json:"medicine,omitempty"`
	Notes         *string           `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentDetails is an appointment joined with the names and report
// filenames shown on the dashboards.
type AppointmentDetails struct {
	Appointment
	DoctorName  string   `json:"doctor_name"`
	PatientName string   `json:"patient_name"`
	Reports     []string `json:"reports"`
}

type BookAppointmentRequest struct {
	DoctorID  int64  `json:"doctor_id" validate:"required,gt=0"`
	PatientID int64  `json:"patient_id" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Mode      string `json:"mode" validate:"required,max=32"`
	Disease   string `json:"disease" validate:"max=255"`
	Age       int    `json:"age" validate:"gte=0,lte=150"`
}

type UpdateAppointmentRequest struct {
	Date    *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Mode    *string `json:"mode" validate:"omitempty,min=1,max=32"`
	Disease *string `json:"disease" validate:"omitempty,max=255"`
	Age     *int    `json:"age" validate:"omitempty,gte=0,lte=150"`
}

type CompleteAppointmentRequest struct {
	Medicine string `json:"medicine" validate:"max=1000"`
	Notes    string `json:"notes" validate:"max=2000"`
}

type AppointmentFilters struct {
	DoctorID  int64
	PatientID int64
	Statuses  []AppointmentStatus
}

// TransitionEvent records one committed status change. Booking is the edge
// from AppointmentStatusNone to AppointmentStatusBooked.
type TransitionEvent struct {
	AppointmentID int64             `json:"appointment_id"`
	From          AppointmentStatus `json:"from_status"`
	To            AppointmentStatus `json:"to_status"`
	ActorRole     Role              `json:"actor_role"`
}

// ReportAttachedEvent records a report appended to an appointment.
type ReportAttachedEvent struct {
	AppointmentID int64 `json:"appointment_id"`
	ReportID      int64 `json:"report_id"`
	ActorRole     Role  `json:"actor_role"`
}

func (s AppointmentStatus) String() string {
	if s == AppointmentStatusNone {
		return "none"
	}
	return string(s)
}
