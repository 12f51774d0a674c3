package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/campuspay/wallet/internal/domain"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,32}$`)

// Validator checks request DTOs against their `validate` struct tags.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator that reports fields by their JSON names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.Role(fl.Field().String()).Valid()
	})

	return &Validator{validate: v}
}

// Struct validates s. A failure is returned as a domain validation error with
// one entry per failing field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidationError(domain.FieldError{Message: err.Error()})
	}

	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{Field: fe.Field(), Message: message(fe)})
	}

	return domain.NewValidationError(fields...)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short (min: " + fe.Param() + ")"
	case "max":
		return "Value is too long (max: " + fe.Param() + ")"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "username":
		return "Must be 3 to 32 letters, digits, dots, dashes or underscores"
	case "role":
		return "Must be one of: STUDENT, VENDOR, ADMIN"
	case "gt":
		return "Must be greater than " + fe.Param()
	case "gte":
		return "Must be at least " + fe.Param()
	case "ne":
		return "Must not be " + fe.Param()
	case "dive":
		return "Invalid element"
	default:
		return "Invalid value"
	}
}
