package identity_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_DeliversInOrder(t *testing.T) {
	b := identity.NewBroadcaster()

	var got []string
	b.OnAuthStateChange(func(ev identity.Event) { got = append(got, "first:"+ev.Kind.String()) })
	b.OnAuthStateChange(func(ev identity.Event) { got = append(got, "second:"+ev.Kind.String()) })

	b.Emit(identity.EventSignedIn, &sessions.Session{AccessToken: "a", RefreshToken: "b"})
	b.Emit(identity.EventSignedOut, nil)

	require.Equal(t, []string{
		"first:SIGNED_IN", "second:SIGNED_IN",
		"first:SIGNED_OUT", "second:SIGNED_OUT",
	}, got)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := identity.NewBroadcaster()

	calls := 0
	sub := b.OnAuthStateChange(func(identity.Event) { calls++ })
	require.Equal(t, 1, b.Subscribers())

	sub.Unsubscribe()
	sub.Unsubscribe()
	b.Emit(identity.EventSignedIn, nil)

	require.Zero(t, calls)
	require.Zero(t, b.Subscribers())
}

func TestBroadcaster_HandlersGetIndependentSessions(t *testing.T) {
	b := identity.NewBroadcaster()

	b.OnAuthStateChange(func(ev identity.Event) { ev.Session.AccessToken = "tampered" })
	var seen string
	b.OnAuthStateChange(func(ev identity.Event) { seen = ev.Session.AccessToken })

	original := &sessions.Session{AccessToken: "a", RefreshToken: "b"}
	ev := b.Emit(identity.EventTokenRefreshed, original)

	require.Equal(t, "a", seen)
	require.Equal(t, "a", original.AccessToken)
	require.NotEmpty(t, ev.ID)
	require.False(t, ev.At.IsZero())
}

func TestError(t *testing.T) {
	cause := errors.New("400 Bad Request")
	err := identity.NewError(identity.ErrInvalidCredentials, "Invalid login credentials", cause)

	require.Equal(t, "Invalid login credentials", err.Error())
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
	require.ErrorIs(t, err, cause)

	bare := identity.NewError(identity.ErrProviderUnavailable, "", cause)
	require.Equal(t, "identity provider unavailable: 400 Bad Request", bare.Error())
}
