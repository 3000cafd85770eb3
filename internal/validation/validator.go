// Package validation checks API request bodies with validator/v10 and
// converts failures to domain validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/listenupapp/plantcare/internal/domain"
	domainerrors "github.com/listenupapp/plantcare/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the plantcare custom tags:
//
//	carekind  - water, fertilize or treatment
//	cellstate - one of the calendar cell states
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	//nolint:errcheck // registration only fails on empty tags
	_ = v.RegisterValidation("carekind", func(fl validator.FieldLevel) bool {
		return domain.CareKind(fl.Field().String()).Valid()
	})
	//nolint:errcheck // registration only fails on empty tags
	_ = v.RegisterValidation("cellstate", func(fl validator.FieldLevel) bool {
		return domain.CellState(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	fields := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
		fields = append(fields, e.Field())
	}

	return domainerrors.ValidationWithDetails("validation failed: "+strings.Join(fields, ", "), fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "datetime":
		return "must be a date formatted as " + e.Param()
	case "carekind":
		return "must be one of: water fertilize treatment"
	case "cellstate":
		return "must be a calendar state such as water-fertilize"
	case "url", "uri":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}
