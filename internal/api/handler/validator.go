package handler

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kodecamp/lms/internal/core/domain"
	"github.com/kodecamp/lms/internal/core/security"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
// Besides the built-in tags it understands:
//
//	strongpassword  the shared password policy
//	passwordbytes   at most security.MaxPasswordBytes bytes
//	stack           one of domain.Stacks, case-insensitive
//	proficiency     one of domain.Proficiencies, case-insensitive
func NewValidator() *echoValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return security.ValidatePassword(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("passwordbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= security.MaxPasswordBytes
	})
	_ = v.RegisterValidation("stack", func(fl validator.FieldLevel) bool {
		return slices.Contains(domain.Stacks, domain.Normalize(fl.Field().String()))
	})
	_ = v.RegisterValidation("proficiency", func(fl validator.FieldLevel) bool {
		return slices.Contains(domain.Proficiencies, domain.Normalize(fl.Field().String()))
	})
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface. Failures come back as
// domain validation errors so the error handler renders them as 400.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return domain.NewValidationError(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " field is required"
	case "email":
		return field + " must be a valid email"
	case "url", "http_url":
		return field + " must be a valid url"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "strongpassword":
		return domain.ErrWeakPassword.Msg
	case "passwordbytes":
		return domain.ErrPasswordTooLong.Msg
	case "stack":
		return field + " must be one of: " + strings.Join(domain.Stacks, ", ")
	case "proficiency":
		return field + " must be one of: " + strings.Join(domain.Proficiencies, ", ")
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
