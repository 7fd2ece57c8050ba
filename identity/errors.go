package identity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrInvalidSession      = errors.New("invalid session")
)

// Error is a provider failure carrying a message fit to show a user.
type Error struct {
	Kind    error  // One of the sentinels above
	Message string // Human-readable, e.g. "Invalid login credentials"
	Err     error  // Underlying cause, if any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprint(e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func NewError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}
