package model

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// User represents an account of any role. Doctor accounts are linked to the
// Doctor record they act as through DoctorID.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	DoctorID     *int64    `json:"doctor_id,omitempty" db:"doctor_id"`
	ProfilePic   *string   `json:"profile_pic,omitempty" db:"profile_pic"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Actor is the explicit identity every lifecycle and dispatcher call runs as.
type Actor struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
	// DoctorID is filled in by the lifecycle engine from the user record.
	DoctorID *int64 `json:"doctor_id,omitempty"`
}
