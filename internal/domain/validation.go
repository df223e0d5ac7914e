package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with the engine's custom rules and
// reports failures as ValidationErrors.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator with the domain rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// Registration only fails on empty tags, which these are not.
	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("finite", validateFinite)
	_ = v.RegisterValidation("gender", validateGender)
	_ = v.RegisterValidation("consent_element", validateConsentElement)

	return &Validator{validate: v}
}

var defaultValidator = NewValidator()

// Validate checks a struct against its validate tags.
func Validate(i interface{}) error {
	return defaultValidator.Validate(i)
}

// Validate checks a struct against its validate tags.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, NewValidationError(fieldPath(fe), describe(fe), fe.Value()))
	}
	return out
}

// ValidateEvaluationInput checks the patient and protocol of an evaluation.
func ValidateEvaluationInput(patient *Patient, protocol *Protocol) error {
	if patient == nil {
		return NewValidationError("patient", "patient record is required", nil)
	}
	if protocol == nil {
		return NewValidationError("protocol", "protocol record is required", nil)
	}

	var all ValidationErrors
	for _, target := range []interface{}{patient, protocol} {
		if err := Validate(target); err != nil {
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				return err
			}
			all = append(all, verrs...)
		}
	}
	if len(all) > 0 {
		return all
	}
	return nil
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "finite":
		return "must be a finite number"
	case "gender":
		return fmt.Sprintf("must be one of %s, %s, %s, %s", GenderMale, GenderFemale, GenderOther, GenderUnspecified)
	case "consent_element":
		return "is not a recognized consent element"
	case "min":
		return fmt.Sprintf("must contain at least %s entries", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed '%s' validation", fe.Tag())
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateFinite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validateGender(fl validator.FieldLevel) bool {
	return Gender(strings.ToLower(fl.Field().String())).IsValid()
}

func validateConsentElement(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, e := range RequiredConsentElements {
		if e == value {
			return true
		}
	}
	return false
}
