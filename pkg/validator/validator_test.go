package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
)

type sample struct {
	Name     string `json:"name" validate:"required"`
	Age      int    `json:"age" validate:"gte=0"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Filename string `json:"filename" validate:"omitempty,report_ext"`
}

func TestValidate(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&sample{Name: "x", Date: "2024-01-10", Filename: "scan.PDF"}))

	err := v.Validate(&sample{Age: -1, Date: "10/01/2024", Filename: "notes.exe"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ValidationError)
	msg := err.Error()
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "age must be at least 0")
	assert.Contains(t, msg, "date must be a date")
	assert.Contains(t, msg, "filename must end in one of png, jpg, jpeg, pdf")
}

func TestAllowedReportFile(t *testing.T) {
	for _, name := range []string{"a.png", "b.jpg", "c.jpeg", "d.pdf", "E.JPG"} {
		assert.True(t, AllowedReportFile(name), name)
	}
	for _, name := range []string{"", "noext", "a.gif", "pdf", "a.pdf.exe"} {
		assert.False(t, AllowedReportFile(name), name)
	}
}
