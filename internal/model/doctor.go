package model

// Doctor is a bookable practitioner profile.
type Doctor struct {
	ID             int64   `json:"id" db:"id"`
	Name           string  `json:"name" db:"name"`
	Specialization string  `json:"specialization" db:"specialization"`
	City           string  `json:"city" db:"city"`
	Experience     int     `json:"experience" db:"experience"`
	Rating         float64 `json:"rating" db:"rating"`
	Fee            float64 `json:"fee" db:"fee"`
	Mode           string  `json:"mode" db:"mode"`
}

// UpdateDoctorProfileRequest replaces every editable field of the caller's
// doctor record.
type UpdateDoctorProfileRequest struct {
	Name           string  `json:"name" validate:"required,max=100"`
	Specialization string  `json:"specialization" validate:"required,max=100"`
	City           string  `json:"city" validate:"max=100"`
	Experience     int     `json:"experience" validate:"gte=0,lte=80"`
	Rating         float64 `json:"rating" validate:"gte=0,lte=5"`
	Fee            float64 `json:"fee" validate:"gte=0"`
	Mode           string  `json:"mode" validate:"required,max=32"`
}
