package shared

import (
	"regexp"
	"strconv"
	"strings"
)

// MinSecretLength is the shortest password accepted before contacting the identity provider.
const MinSecretLength = 6

var emailRx = regexp.MustCompile(`\S+@\S+\.\S+`)

// ValidateEmail checks that email is present and roughly shaped like an address.
func ValidateEmail(email string) *ValidationError {
	if strings.TrimSpace(email) == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if !emailRx.MatchString(email) {
		return &ValidationError{Field: "email", Message: "Please enter a valid email"}
	}
	return nil
}

// ValidateSecret checks that secret is present and at least [MinSecretLength] characters.
func ValidateSecret(secret string) *ValidationError {
	if secret == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	if len(secret) < MinSecretLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return nil
}

// ValidateRequired checks that value is non-blank.
func ValidateRequired(field, label, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: label + " is required"}
	}
	return nil
}

// ValidateTerm checks that value is a positive whole number.
func ValidateTerm(value string) *ValidationError {
	if err := ValidateRequired("semester", "Semester", value); err != nil {
		return err
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return &ValidationError{Field: "semester", Message: "Semester must be a positive number"}
	}
	return nil
}

// Collect gathers the non-nil results into [ValidationErrors].
func Collect(checks ...*ValidationError) ValidationErrors {
	var errs ValidationErrors
	for _, c := range checks {
		if c != nil {
			errs = append(errs, c)
		}
	}
	return errs
}
