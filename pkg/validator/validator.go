package validator

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/mediconnect-api/pkg/errors"
)

// AllowedReportExtensions are the file types a report may reference.
var AllowedReportExtensions = []string{"png", "jpg", "jpeg", "pdf"}

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

type validator struct {
	v *playground.Validate
}

// New returns a validator that reports field names by their json tag and
// knows the report_ext rule.
func New() Validator {
	v := playground.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("report_ext", func(fl playground.FieldLevel) bool {
		return AllowedReportFile(fl.Field().String())
	})
	return &validator{v: v}
}

// AllowedReportFile reports whether filename has one of the allowed
// extensions, compared case-insensitively.
func AllowedReportFile(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, allowed := range AllowedReportExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Validate returns a validation AppError describing every failed field.
func (v *validator) Validate(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidation("invalid request", err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, describe(fe))
	}
	return apperrors.NewValidation(strings.Join(messages, "; "), nil)
}

func describe(fe playground.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt", "gte":
		return fmt.Sprintf("%s must be at least %s", field, minFor(fe))
	case "lte", "max":
		return fmt.Sprintf("%s must not exceed %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", field, "YYYY-MM-DD")
	case "report_ext":
		return fmt.Sprintf("%s must end in one of %s", field, strings.Join(AllowedReportExtensions, ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func minFor(fe playground.FieldError) string {
	if fe.Tag() == "gt" {
		return fe.Param() + " exclusive"
	}
	return fe.Param()
}
