package identity

import (
	"context"
	"time"

	"github.com/jrsteele09/go-auth-session/sessions"
)

// EventKind names an identity change reported by the provider. Kinds are
// plain strings so that kinds added by a provider pass through untouched.
type EventKind string

const (
	EventInitialSession   EventKind = "INITIAL_SESSION"
	EventSignedIn         EventKind = "SIGNED_IN"
	EventSignedOut        EventKind = "SIGNED_OUT"
	EventTokenRefreshed   EventKind = "TOKEN_REFRESHED"
	EventUserUpdated      EventKind = "USER_UPDATED"
	EventPasswordRecovery EventKind = "PASSWORD_RECOVERY"
)

func (k EventKind) String() string {
	return string(k)
}

// Event is one identity change. Session is nil when the provider has none.
type Event struct {
	ID      string
	Kind    EventKind
	Session *sessions.Session
	At      time.Time
}

// Handler receives events for the lifetime of its subscription.
type Handler func(Event)

// Subscription is returned by OnAuthStateChange.
type Subscription interface {
	Unsubscribe()
}

// Provider is the identity provider client the session controller reconciles against.
type Provider interface {
	// SignInWithPassword exchanges credentials for a session
	SignInWithPassword(ctx context.Context, identifier, secret string) (*sessions.Session, error)

	// SignOut invalidates the provider-side session
	SignOut(ctx context.Context) error

	// SetSession re-establishes a session from stored tokens. A nil session
	// with a nil error means the provider has no resulting session.
	SetSession(ctx context.Context, tokens sessions.Tokens) (*sessions.Session, error)

	// OnAuthStateChange registers handler for all subsequent events
	OnAuthStateChange(handler Handler) Subscription
}
