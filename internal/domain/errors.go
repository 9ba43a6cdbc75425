package domain

import (
	"errors"
	"fmt"
)

// Error kinds the controller maps to distinct user-visible responses.
// Validation and permission errors are raised locally and never reach
// the upstream league API; ErrStaleMatch and ErrExternalUnavailable
// originate only at the client boundary.
var (
	ErrInvalidTimeFormat   = errors.New("invalid match time format")
	ErrUnknownRosterPlayer = errors.New("player not on match roster")
	ErrInvalidTransition   = errors.New("invalid match status transition")
	ErrMissingFinishType   = errors.New("finish type required")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrStaleMatch          = errors.New("match changed upstream")
	ErrExternalUnavailable = errors.New("league api unavailable")
	ErrNotFound            = errors.New("not found")
)

// FieldError ties a validation failure to the offending field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func NewFieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

// IsValidation reports whether err is a locally raised validation error.
func IsValidation(err error) bool {
	var fe *FieldError
	if errors.As(err, &fe) {
		return true
	}
	return errors.Is(err, ErrInvalidTimeFormat) || errors.Is(err, ErrUnknownRosterPlayer)
}
