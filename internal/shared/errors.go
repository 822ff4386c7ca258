package shared

import (
	"fmt"
	"strings"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Session errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrIdentity         = fmt.Errorf("identity failure")
	ErrAuthCancelled    = fmt.Errorf("authorization cancelled")

	// Remote collaborator errors
	ErrSourceUnavailable   = fmt.Errorf("catalog source unavailable")
	ErrTransport           = fmt.Errorf("transport failure")
	ErrRemoteRejection     = fmt.Errorf("request rejected by remote endpoint")
	ErrDuplicateSubmission = fmt.Errorf("already requested")
	ErrStorageAuth         = fmt.Errorf("storage authorization failed")
	ErrStorageRequest      = fmt.Errorf("storage request failed")
	ErrUploadLocked        = fmt.Errorf("upload locked until a request is registered")
	ErrRecordNotFound      = fmt.Errorf("record not found")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ValidationError describes a client-side form check that failed before any remote call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports ValidationError as [ErrValidation].
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ValidationErrors collects every failed field of one form.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Is reports ValidationErrors as [ErrValidation].
func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Field returns the message for field, or "" when it passed.
func (v ValidationErrors) Field(field string) string {
	for _, e := range v {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// OrNil returns nil when no fields failed so callers can `return errs.OrNil()`.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
