package models

import (
	"fmt"

	"github.com/desertthunder/kplor/internal/shared"
)

// Identity is the authenticated user of the current session.
type Identity struct {
	SubjectID   string `json:"subjectId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// IntentKind discriminates [PendingIntent].
type IntentKind int

const (
	IntentNone IntentKind = iota
	IntentRequestExisting
	IntentSubmitNew
)

// PendingIntent is the action an anonymous user attempted, held until authentication succeeds.
type PendingIntent struct {
	Kind     IntentKind
	RecordID string
	Form     CourseForm
}

// RequestExisting builds an intent to register interest in recordID.
func RequestExisting(recordID string) PendingIntent {
	return PendingIntent{Kind: IntentRequestExisting, RecordID: recordID}
}

// SubmitNew builds an intent to create a new record from form.
func SubmitNew(form CourseForm) PendingIntent {
	return PendingIntent{Kind: IntentSubmitNew, Form: form}
}

func (p PendingIntent) String() string {
	switch p.Kind {
	case IntentRequestExisting:
		return fmt.Sprintf("RequestExisting{%s}", p.RecordID)
	case IntentSubmitNew:
		return fmt.Sprintf("SubmitNew{%s}", p.Form.CompositeKey())
	default:
		return "None"
	}
}

// IdentityFailure is the closed set of identity failure codes.
type IdentityFailure int

const (
	FailureUnknown IdentityFailure = iota
	FailureInvalidCredentials
	FailureUnknownUser
	FailureRateLimited
	FailureInvalidEmailFormat
	FailureEmailAlreadyRegistered
	FailureWeakSecret
	FailureEmailNotVerified
	FailureProviderPopupCancelled
	FailureProviderUnavailable
)

func (f IdentityFailure) String() string {
	switch f {
	case FailureInvalidCredentials:
		return "InvalidCredentials"
	case FailureUnknownUser:
		return "UnknownUser"
	case FailureRateLimited:
		return "RateLimited"
	case FailureInvalidEmailFormat:
		return "InvalidEmailFormat"
	case FailureEmailAlreadyRegistered:
		return "EmailAlreadyRegistered"
	case FailureWeakSecret:
		return "WeakSecret"
	case FailureEmailNotVerified:
		return "EmailNotVerified"
	case FailureProviderPopupCancelled:
		return "ProviderPopupCancelled"
	case FailureProviderUnavailable:
		return "ProviderUnavailable"
	default:
		return "Unknown"
	}
}

// Message returns the notice shown to the user for f.
func (f IdentityFailure) Message() string {
	switch f {
	case FailureInvalidCredentials:
		return "Incorrect email or password."
	case FailureUnknownUser:
		return "No user found with this email."
	case FailureRateLimited:
		return "Too many failed attempts. Try again later."
	case FailureInvalidEmailFormat:
		return "Please enter a valid email address."
	case FailureEmailAlreadyRegistered:
		return "This email is already registered. Try logging in."
	case FailureWeakSecret:
		return "Password entered is too weak. Please use a stronger one."
	case FailureEmailNotVerified:
		return "Please verify your email before logging in."
	case FailureProviderPopupCancelled:
		return "Google Sign-In was cancelled."
	case FailureProviderUnavailable:
		return "Sign-in is temporarily unavailable. Please try again later."
	default:
		return "An error occurred during authentication."
	}
}

// IdentityError is a failed identity operation tagged with its [IdentityFailure].
type IdentityError struct {
	Code IdentityFailure
	Err  error
}

// NewIdentityError tags err with code.
func NewIdentityError(code IdentityFailure, err error) *IdentityError {
	return &IdentityError{Code: code, Err: err}
}

func (e *IdentityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", shared.ErrIdentity, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", shared.ErrIdentity, e.Code)
}

func (e *IdentityError) Unwrap() error { return e.Err }

// Is matches [shared.ErrIdentity] and any IdentityError carrying the same code.
func (e *IdentityError) Is(target error) bool {
	if target == shared.ErrIdentity {
		return true
	}
	if t, ok := target.(*IdentityError); ok {
		return t.Code == e.Code
	}
	return false
}
