package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/mediconnect-api/internal/model"
)

func int64Ptr(v int64) *int64 { return &v }

func TestAuthorize(t *testing.T) {
	owner := Owner{PatientID: 7, DoctorID: 3}

	admin := model.Actor{UserID: 1, Role: model.RoleAdmin}
	patient := model.Actor{UserID: 7, Role: model.RolePatient}
	otherPatient := model.Actor{UserID: 9, Role: model.RolePatient}
	doctor := model.Actor{UserID: 4, Role: model.RoleDoctor, DoctorID: int64Ptr(3)}
	otherDoctor := model.Actor{UserID: 5, Role: model.RoleDoctor, DoctorID: int64Ptr(2)}
	unlinkedDoctor := model.Actor{UserID: 6, Role: model.RoleDoctor}
	// A doctor whose user id happens to equal the patient id.
	doctorAsPatient := model.Actor{UserID: 7, Role: model.RoleDoctor, DoctorID: int64Ptr(2)}

	tests := []struct {
		name   string
		actor  model.Actor
		action Action
		want   bool
	}{
		{"admin confirm", admin, ActionConfirm, true},
		{"admin cancel", admin, ActionCancel, true},
		{"admin unknown action", admin, Action("delete"), true},

		{"doctor confirm own", doctor, ActionConfirm, true},
		{"doctor complete own", doctor, ActionComplete, true},
		{"doctor confirm other", otherDoctor, ActionConfirm, false},
		{"doctor complete other", otherDoctor, ActionComplete, false},
		{"unlinked doctor confirm", unlinkedDoctor, ActionConfirm, false},
		{"doctor cancel", doctor, ActionCancel, false},
		{"doctor attach report", doctor, ActionAttachReport, false},
		{"doctor with patient id cancel", doctorAsPatient, ActionCancel, false},

		{"patient book own", patient, ActionBook, true},
		{"patient cancel own", patient, ActionCancel, true},
		{"patient attach own", patient, ActionAttachReport, true},
		{"patient update own", patient, ActionUpdateDetails, true},
		{"patient cancel other", otherPatient, ActionCancel, false},
		{"patient book for other", otherPatient, ActionBook, false},
		{"patient confirm", patient, ActionConfirm, false},
		{"patient complete", patient, ActionComplete, false},

		{"view as patient", patient, ActionView, true},
		{"view as doctor", doctor, ActionView, true},
		{"view as other patient", otherPatient, ActionView, false},
		{"view as other doctor", otherDoctor, ActionView, false},

		{"unknown role", model.Actor{UserID: 7, Role: "nurse"}, ActionCancel, false},
		{"unknown action", patient, Action("delete"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.actor, tt.action, owner))
		})
	}
}

func TestOwnerOf(t *testing.T) {
	a := &model.Appointment{ID: 1, PatientID: 7, DoctorID: 3}
	assert.Equal(t, Owner{PatientID: 7, DoctorID: 3}, OwnerOf(a))
}
