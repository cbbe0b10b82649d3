// Package policy decides whether an actor may perform an action on an
// appointment. It has no side effects and never touches the store.
package policy

import "github.com/jwalitptl/mediconnect-api/internal/model"

type Action string

const (
	ActionBook          Action = "book"
	ActionConfirm       Action = "confirm"
	ActionComplete      Action = "complete"
	ActionCancel        Action = "cancel"
	ActionAttachReport  Action = "attach_report"
	ActionUpdateDetails Action = "update_details"
	ActionView          Action = "view"
)

// Owner identifies who owns an appointment: the booking patient's user id
// and the assigned doctor record id.
type Owner struct {
	PatientID int64
	DoctorID  int64
}

func OwnerOf(a *model.Appointment) Owner {
	return Owner{PatientID: a.PatientID, DoctorID: a.DoctorID}
}

// Authorize reports whether actor may perform action on a resource owned by
// owner. Admins are unrestricted. Doctor actions need the actor's linked
// doctor record to be the appointment's doctor; patient actions need the
// actor to be the owning patient.
func Authorize(actor model.Actor, action Action, owner Owner) bool {
	if actor.Role == model.RoleAdmin {
		return true
	}

	switch action {
	case ActionConfirm, ActionComplete:
		return isDoctorOwner(actor, owner)
	case ActionBook, ActionCancel, ActionAttachReport, ActionUpdateDetails:
		return isPatientOwner(actor, owner)
	case ActionView:
		return isPatientOwner(actor, owner) || isDoctorOwner(actor, owner)
	default:
		return false
	}
}

func isDoctorOwner(actor model.Actor, owner Owner) bool {
	return actor.Role == model.RoleDoctor &&
		actor.DoctorID != nil &&
		*actor.DoctorID == owner.DoctorID
}

func isPatientOwner(actor model.Actor, owner Owner) bool {
	return actor.Role == model.RolePatient && actor.UserID == owner.PatientID
}
