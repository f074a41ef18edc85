// Package validation provides HTTP request validation utilities using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	domainerrors "github.com/brickcomplete/brickcomplete-server/internal/errors"
)

// setNumberPattern accepts catalog set and minifig numbers such as
// "75192-1", "10001-1" or "fig-000001".
var setNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
//
// Besides the built-in tags it understands:
//
//	setnum   a catalog set number
//	partkey  an encoded part key ("3001_1_regular_normal" or legacy "3001_1")
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "path"} {
			name := fld.Tag.Get(tag)
			if name == "" || name == "-" {
				continue
			}
			for i := range len(name) {
				if name[i] == ',' {
					return name[:i]
				}
			}
			return name
		}
		return fld.Name
	})

	_ = v.RegisterValidation("setnum", func(fl validator.FieldLevel) bool {
		return IsSetNumber(fl.Field().String())
	})
	_ = v.RegisterValidation("partkey", func(fl validator.FieldLevel) bool {
		_, err := domain.ParsePartKey(fl.Field().String())
		return err == nil
	})

	return &Validator{v: v}
}

// IsSetNumber reports whether s has the shape of a catalog set number.
func IsSetNumber(s string) bool {
	return setNumberPattern.MatchString(s)
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Var validates a single value against a tag, reporting failures under field.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.v.Var(value, tag); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			return domainerrors.ValidationWithDetails("validation failed", map[string]string{
				field: v.friendlyMessage(validationErrs[0]),
			})
		}
		return err
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string)
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return "must not exceed " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "url":
		return "must be a valid URL"
	case "setnum":
		return "must be a set number like 75192-1"
	case "partkey":
		return "must be a part key like 3001_1_regular_normal"
	case "dive":
		return "contains an invalid entry"
	default:
		return "is invalid"
	}
}
