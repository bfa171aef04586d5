package common

import (
	"errors"

	validator "github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct checks the validate tags on a request payload and returns a
// field-to-problem map suitable for the details of a BAD_REQUEST response.
func ValidateStruct(payload any) (map[string]any, bool) {
	err := validate.Struct(payload)
	if err == nil {
		return nil, true
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return map[string]any{"payload": "not validatable"}, false
	}
	var fieldErrs validator.ValidationErrors
	details := map[string]any{}
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fe.Field()] = "failed " + fe.Tag() + " validation"
		}
	}
	return details, false
}
