package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "climatedash/internal/errors"
	"climatedash/pkg/contracts/domain"
)

// Validator validates request structs through their `validate` tags and
// reports failures as VALIDATION_FAILED API errors.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the dashboard's custom rules
func NewValidator() *Validator {
	v := validator.New()

	// "metric" accepts any unified metric column name
	_ = v.RegisterValidation("metric", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseMetric(fl.Field().String())
		return ok
	})

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates s. It returns nil or an *apierrors.APIError.
func (m *Validator) Struct(s interface{}) error {
	err := m.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.ErrValidation("request", err.Error())
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Replace(param, " ", ", ", -1))
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, strings.ToLower(param))
	case "metric":
		return fmt.Sprintf("%s is not a known metric", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
