package fakeprovider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/identity/fakeprovider"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/stretchr/testify/require"
)

func TestFakeProvider_SignIn(t *testing.T) {
	fp := fakeprovider.NewFakeProvider()
	fp.AddAccount("e@x.com", "pw", sessions.Session{AccessToken: "a", RefreshToken: "b", User: sessions.User{ID: "u1"}})

	var events []identity.EventKind
	fp.OnAuthStateChange(func(ev identity.Event) { events = append(events, ev.Kind) })

	s, err := fp.SignInWithPassword(context.Background(), "e@x.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "u1", s.User.ID)
	require.Empty(t, events)

	_, err = fp.SignInWithPassword(context.Background(), "e@x.com", "bad")
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)

	fp.Configure(func(fp *fakeprovider.FakeProvider) { fp.EmitOnSignIn = true })
	_, err = fp.SignInWithPassword(context.Background(), "e@x.com", "pw")
	require.NoError(t, err)
	require.Equal(t, []identity.EventKind{identity.EventSignedIn}, events)
	require.Equal(t, 3, fp.Calls("SignInWithPassword"))
}

func TestFakeProvider_Scripting(t *testing.T) {
	fp := fakeprovider.NewFakeProvider()

	_, err := fp.SetSession(context.Background(), sessions.Tokens{AccessToken: "a", RefreshToken: "b"})
	require.ErrorIs(t, err, identity.ErrInvalidSession)

	boom := errors.New("boom")
	fp.Configure(func(fp *fakeprovider.FakeProvider) {
		fp.SignOutErr = boom
		fp.SetSessionFunc = func(_ context.Context, tokens sessions.Tokens) (*sessions.Session, error) {
			return &sessions.Session{AccessToken: tokens.AccessToken + "2", RefreshToken: tokens.RefreshToken + "2"}, nil
		}
	})

	s, err := fp.SetSession(context.Background(), sessions.Tokens{AccessToken: "a", RefreshToken: "b"})
	require.NoError(t, err)
	require.Equal(t, "a2", s.AccessToken)
	require.ErrorIs(t, fp.SignOut(context.Background()), boom)
	require.Equal(t, 2, fp.Calls("SetSession"))
	require.Equal(t, 1, fp.Calls("SignOut"))
}
