package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mediarequest/backend/internal/common/constants"
)

var passwordLengthMessage = fmt.Sprintf("password must be between %d and %d bytes",
	constants.PasswordMinLength, constants.PasswordMaxLength)

type registrationFields struct {
	Email         string `json:"email" validate:"required,email,max=254"`
	Password      string `json:"password" validate:"required,password_bytes"`
	DisplayName   string `json:"displayName" validate:"max=100"`
	ContactHandle string `json:"contactHandle" validate:"max=64"`
}

type CredentialValidator struct {
	validate *validator.Validate
}

func NewCredentialValidator() *CredentialValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	// bcrypt truncates past 72 bytes, so the bound is on bytes, not runes.
	_ = v.RegisterValidation("password_bytes", func(fl validator.FieldLevel) bool {
		n := len(fl.Field().String())
		return n >= constants.PasswordMinLength && n <= constants.PasswordMaxLength
	})
	return &CredentialValidator{validate: v}
}

// ValidateRegistration expects an already normalized email.
func (cv *CredentialValidator) ValidateRegistration(email, password, displayName, contactHandle string) error {
	err := cv.validate.Struct(registrationFields{
		Email:         email,
		Password:      password,
		DisplayName:   displayName,
		ContactHandle: contactHandle,
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return ErrInvalidInput.WithCause(err)
	}
	return invalidInput(describeFieldError(fieldErrs[0]))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "email must be a valid email address"
	case "password_bytes":
		return passwordLengthMessage
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
