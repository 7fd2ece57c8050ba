package auth

import (
	"errors"

	"github.com/jrsteele09/go-auth-session/identity"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// DefaultErrorMessage is shown when a sign-in failure carries no provider message.
const DefaultErrorMessage = "Login failed"

var (
	ErrAlreadyStarted = errors.New("session controller already started")
	ErrClosed         = apperrors.Wrapf(apperrors.ErrClosed, "session controller")
)

// Message extracts a human-readable message from a SignIn error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var providerErr *identity.Error
	if apperrors.As(err, &providerErr) && providerErr.Message != "" {
		return providerErr.Message
	}
	return DefaultErrorMessage
}
