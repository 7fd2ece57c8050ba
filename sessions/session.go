package sessions

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/utils"
)

// ErrIncompleteSession is returned when a session lacks one of its two tokens.
var ErrIncompleteSession = errors.New("session is missing an access or refresh token")

// ErrMalformedSession is returned when a serialized session cannot be decoded.
var ErrMalformedSession = errors.New("malformed serialized session")

// User is the identity payload of a session. Only ID is interpreted; the
// remaining attributes are carried through untouched.
type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email,omitempty"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Clone returns a copy of the user that shares nothing mutable with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Metadata = utils.CloneTree(u.Metadata)
	return &c
}

// Tokens is the credential pair used to re-establish a session with the provider.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Session is the authoritative record of an authenticated identity.
type Session struct {
	AccessToken  string `json:"access_token"`         // Short-lived bearer credential
	RefreshToken string `json:"refresh_token"`        // Mints new access tokens
	TokenType    string `json:"token_type,omitempty"` // Usually "bearer"
	ExpiresAt    int64  `json:"expires_at,omitempty"` // Access token expiry, unix seconds, 0 if unknown
	User         User   `json:"user"`                 // Identity payload
}

// Usable reports whether both tokens are present. Only usable sessions are persisted.
func (s *Session) Usable() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != ""
}

func (s *Session) Tokens() Tokens {
	if s == nil {
		return Tokens{}
	}
	return Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}

// Expiry returns the access token expiry, zero when unknown.
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.User = *s.User.Clone()
	return &c
}

// Encode serializes a usable session. Partial sessions are refused so they
// can never reach a Store.
func Encode(s *Session) (string, error) {
	if !s.Usable() {
		return "", ErrIncompleteSession
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses a serialized session. It does not check usability.
func Decode(serialized string) (*Session, error) {
	var s Session
	if err := json.Unmarshal([]byte(serialized), &s); err != nil {
		return nil, errors.Join(ErrMalformedSession, err)
	}
	return &s, nil
}
