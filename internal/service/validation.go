package service

import (
	"errors"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/core-admin/backend/internal/model"
)

const (
	maxUsernameLength = 150
	maxPasswordLength = 128
	maxNameLength     = 150
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

const msgRequired = "This field is required."

var (
	required = validation.Required.Error(msgRequired)

	usernameRules = []validation.Rule{
		required,
		maxLength(maxUsernameLength),
		validation.Match(usernamePattern).Error("Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."),
	}
	emailRules = []validation.Rule{
		required,
		maxLength(254),
		is.Email.Error("Enter a valid email address."),
	}
)

func maxLength(n int) validation.Rule {
	return validation.Length(0, n).Error(fmt.Sprintf("Ensure this field has no more than %d characters.", n))
}

func validateLogin(req model.LoginRequest) error {
	return fromValidation(validation.ValidateStruct(&req,
		validation.Field(&req.Email, emailRules...),
		validation.Field(&req.Password, required),
	))
}

func validateRefresh(req model.RefreshRequest) error {
	return fromValidation(validation.ValidateStruct(&req,
		validation.Field(&req.Refresh, required),
	))
}

func validateRegister(req model.RegisterRequest) error {
	return fromValidation(validation.ValidateStruct(&req,
		validation.Field(&req.Username, usernameRules...),
		validation.Field(&req.Email, emailRules...),
		validation.Field(&req.Password, required, maxLength(maxPasswordLength)),
	))
}

func validateForgotPassword(req model.ForgotPasswordRequest) error {
	return fromValidation(validation.ValidateStruct(&req,
		validation.Field(&req.Email, emailRules...),
	))
}

func validateResetPassword(req model.ResetPasswordRequest) error {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Password, required, maxLength(maxPasswordLength)),
		validation.Field(&req.ConfirmPassword, required, maxLength(maxPasswordLength)),
	)
	if err != nil {
		return fromValidation(err)
	}
	if err := ValidateStringEquals(req.Password)(req.ConfirmPassword); err != nil {
		return newFieldError(nonFieldErrors, "Passwords do not match.")
	}
	return nil
}

// validateUser checks a user payload. Password is required on create only.
func validateUser(in model.UserInput, create bool) error {
	passwordRules := []validation.Rule{maxLength(maxPasswordLength)}
	if create {
		passwordRules = append([]validation.Rule{required}, passwordRules...)
	}
	return fromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Username, usernameRules...),
		validation.Field(&in.Email, emailRules...),
		validation.Field(&in.FirstName, required, maxLength(maxNameLength)),
		validation.Field(&in.LastName, maxLength(maxNameLength)),
		validation.Field(&in.Password, passwordRules...),
	))
}

func validateGroup(in model.GroupInput) error {
	return fromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Name, required, maxLength(150)),
		validation.Field(&in.Codename, maxLength(100)),
	))
}

func validatePermission(in model.PermissionInput) error {
	return fromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Name, required, maxLength(255)),
		validation.Field(&in.Codename, required, maxLength(100)),
	))
}

// ValidateStringEquals builds a rule that passes only when the value equals
// str byte for byte.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}
