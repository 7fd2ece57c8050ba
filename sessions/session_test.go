package sessions_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/stretchr/testify/require"
)

func TestSession_Usable(t *testing.T) {
	tests := []struct {
		name    string
		session *sessions.Session
		usable  bool
	}{
		{"nil", nil, false},
		{"both tokens", &sessions.Session{AccessToken: "a", RefreshToken: "b"}, true},
		{"missing access", &sessions.Session{RefreshToken: "b"}, false},
		{"missing refresh", &sessions.Session{AccessToken: "a"}, false},
		{"empty access", &sessions.Session{AccessToken: "", RefreshToken: "b"}, false},
		{"whitespace tokens are opaque", &sessions.Session{AccessToken: "a", RefreshToken: "  "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.usable, tt.session.Usable())
		})
	}
}

func TestEncode_RefusesPartialSession(t *testing.T) {
	_, err := sessions.Encode(&sessions.Session{AccessToken: "a", User: sessions.User{ID: "u1"}})
	require.ErrorIs(t, err, sessions.ErrIncompleteSession)

	_, err = sessions.Encode(nil)
	require.ErrorIs(t, err, sessions.ErrIncompleteSession)
}

func TestEncodeDecode(t *testing.T) {
	s := &sessions.Session{
		AccessToken:  "a",
		RefreshToken: "b",
		TokenType:    "bearer",
		ExpiresAt:    1700000000,
		User:         sessions.User{ID: "u1", Email: "e@x.com", Metadata: map[string]any{"avatar": "cat.png"}},
	}

	data, err := sessions.Encode(s)
	require.NoError(t, err)
	require.Contains(t, data, `"access_token":"a"`)
	require.Contains(t, data, `"refresh_token":"b"`)

	decoded, err := sessions.Decode(data)
	require.NoError(t, err)
	require.Equal(t, s.Tokens(), decoded.Tokens())
	require.Equal(t, "u1", decoded.User.ID)
	require.Equal(t, "cat.png", decoded.User.Metadata["avatar"])
	require.Equal(t, int64(1700000000), decoded.Expiry().Unix())
}

func TestDecode_Malformed(t *testing.T) {
	_, err := sessions.Decode("{not json")
	require.True(t, errors.Is(err, sessions.ErrMalformedSession))
}

func TestSession_CloneIsIndependent(t *testing.T) {
	s := &sessions.Session{
		AccessToken:  "a",
		RefreshToken: "b",
		User:         sessions.User{ID: "u1", Metadata: map[string]any{"k": "v"}},
	}

	c := s.Clone()
	c.User.Metadata["k"] = "changed"
	c.AccessToken = "other"

	require.Equal(t, "v", s.User.Metadata["k"])
	require.Equal(t, "a", s.AccessToken)
	require.Nil(t, (*sessions.Session)(nil).Clone())
	require.True(t, (&sessions.Session{}).Expiry().IsZero())
}

func TestUser_CloneCopiesNestedMetadata(t *testing.T) {
	u := &sessions.User{ID: "u1", Metadata: map[string]any{
		"address": map[string]any{"country": "GB"},
		"groups":  []any{"admins", map[string]any{"id": "g1"}},
	}}

	c := u.Clone()
	c.Metadata["address"].(map[string]any)["country"] = "FR"
	c.Metadata["groups"].([]any)[0] = "users"
	c.Metadata["groups"].([]any)[1].(map[string]any)["id"] = "g2"

	require.Equal(t, "GB", u.Metadata["address"].(map[string]any)["country"])
	require.Equal(t, "admins", u.Metadata["groups"].([]any)[0])
	require.Equal(t, "g1", u.Metadata["groups"].([]any)[1].(map[string]any)["id"])
	require.Nil(t, (&sessions.User{ID: "u2"}).Clone().Metadata)
}
