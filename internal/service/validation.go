package service

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
)

// passcodePattern is the only accepted shape of a student credential.
var passcodePattern = regexp.MustCompile(`^[A-Z0-9]{4}$`)

// ValidPasscode reports whether s is four uppercase letters or digits.
func ValidPasscode(s string) bool {
	return passcodePattern.MatchString(s)
}

// NewValidator returns a validator with the "passcode" rule registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("passcode", func(fl validator.FieldLevel) bool {
		return ValidPasscode(fl.Field().String())
	})
	return v
}

func ensureValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return NewValidator()
	}
	return v
}

func validationError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
