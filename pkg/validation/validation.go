package validation

import (
	"errors"
	"fmt"

	apperrors "carebook/pkg/errors"
	"carebook/pkg/model"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// appointment_type restricts a field to the known visit types; whether a
	// given provider offers the type is checked separately against the
	// directory.
	_ = v.RegisterValidation("appointment_type", func(fl validator.FieldLevel) bool {
		return model.ValidAppointmentType(fl.Field().String())
	})

	return v
}

// Struct runs tag validation and converts failures into a validation error
// with one detail entry per failing field.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return apperrors.Internal("Validation failed", err)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Validation("Request validation failed", nil)
	}

	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describeFailure(fe)
	}
	return apperrors.Validation("Request validation failed", details)
}

func describeFailure(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "datetime":
		return fmt.Sprintf("must match format %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "appointment_type":
		return "unknown appointment type"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
