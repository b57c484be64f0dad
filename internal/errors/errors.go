package errors

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Failure classes. Every error crossing the service boundary wraps exactly
// one of these, so callers can branch with errors.Is while users only ever
// see display text.
var (
	// ErrValidation: bad rating, unknown tag, malformed args. No state mutated.
	ErrValidation = errors.New("validation failed")
	// ErrStateConflict: user already in a duel, no ongoing duel, change
	// already requested. No state mutated.
	ErrStateConflict = errors.New("state conflict")
	// ErrExternalFetch: judge unreachable or response malformed.
	ErrExternalFetch = errors.New("external fetch failed")
	// ErrPersistence: transaction failure; the write was rolled back.
	ErrPersistence = errors.New("persistence failed")
)

// userError carries display text plus its failure class.
type userError struct {
	kind error
	text string
}

func (e *userError) Error() string { return e.text }
func (e *userError) Unwrap() error { return e.kind }

// Validationf builds a validation error whose text is shown verbatim.
func Validationf(format string, args ...any) error {
	return &userError{kind: ErrValidation, text: fmt.Sprintf(format, args...)}
}

// Conflictf builds a state-conflict error whose text is shown verbatim.
func Conflictf(format string, args ...any) error {
	return &userError{kind: ErrStateConflict, text: fmt.Sprintf(format, args...)}
}

// Fetch wraps an upstream error as an external-fetch failure.
func Fetch(err error) error {
	if err == nil {
		return nil
	}
	return &userError{kind: ErrExternalFetch, text: fmt.Sprintf("%s: %v", ErrExternalFetch, err)}
}

// IsNotFound reports whether err is a missing-record lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Map converts repo/infra errors into the persistence class.
// Keeps the service layer clean by centralizing the mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrStateConflict),
		errors.Is(err, ErrExternalFetch),
		errors.Is(err, ErrPersistence):
		return err

	case errors.Is(err, gorm.ErrRecordNotFound):
		return &userError{kind: ErrPersistence, text: "record not found"}

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return &userError{kind: ErrExternalFetch, text: "request timed out"}

	default:
		return &userError{kind: ErrPersistence, text: err.Error()}
	}
}

// Display returns the text shown to the chat user. Validation and conflict
// errors surface verbatim; fetch and persistence failures collapse to a
// generic message so internals never leak into chat.
func Display(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrStateConflict):
		return err.Error()
	case errors.Is(err, ErrExternalFetch):
		return "query failed, please try again later"
	default:
		return "something went wrong, please try again later"
	}
}
