package credentials

import (
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/taxbox/internal/client/apperrors"
)

// Registration is the sign-up form.
type Registration struct {
	Email        string
	FullName     string
	Password     string
	Confirmation string
}

// ValidateRegistration runs every local check that must pass before an
// account is created: required fields, email syntax, confirmation match
// and password strength, in that order. It returns a
// *apperrors.ValidationError or nil.
func ValidateRegistration(r Registration) error {
	var missing []apperrors.Field
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, apperrors.FieldEmail)
	}
	if strings.TrimSpace(r.FullName) == "" {
		missing = append(missing, apperrors.FieldFullName)
	}
	if r.Password == "" {
		missing = append(missing, apperrors.FieldPassword)
	}
	if len(missing) > 0 {
		return apperrors.Validation("Please fill in all required fields", missing...)
	}

	if err := checkEmail(r.Email); err != nil {
		return err
	}

	if !Matches(r.Password, r.Confirmation) {
		return apperrors.Validation("Passwords do not match", apperrors.FieldConfirmation)
	}

	if !Score(r.Password).Acceptable() {
		return apperrors.Validation("Please choose a stronger password", apperrors.FieldPassword)
	}

	return nil
}

// ValidateLogin checks the login form for empty or malformed fields.
func ValidateLogin(email, password string) error {
	var missing []apperrors.Field
	if strings.TrimSpace(email) == "" {
		missing = append(missing, apperrors.FieldEmail)
	}
	if password == "" {
		missing = append(missing, apperrors.FieldPassword)
	}
	if len(missing) > 0 {
		return apperrors.Validation("Please enter your email and password", missing...)
	}
	return checkEmail(email)
}

func checkEmail(email string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" || !strings.Contains(addr.Address, "@") {
		return apperrors.Validation("Please enter a valid email address", apperrors.FieldEmail)
	}
	return nil
}
