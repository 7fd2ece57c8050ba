package fakeprovider

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/sessions"
)

var _ identity.Provider = (*FakeProvider)(nil)

type account struct {
	secret  string
	session sessions.Session
}

// FakeProvider is a scriptable identity provider. Accounts answer
// SignInWithPassword; SetSessionFunc and SignOutErr script the rest; Emit
// pushes arbitrary events to subscribers.
type FakeProvider struct {
	*identity.Broadcaster

	lock     sync.Mutex
	accounts map[string]account
	calls    map[string]int

	SetSessionFunc func(ctx context.Context, tokens sessions.Tokens) (*sessions.Session, error)
	SignInErr      error // Returned by SignInWithPassword when set
	SignOutErr     error
	EmitOnSignIn   bool // Emit SIGNED_IN after a successful sign in
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Broadcaster: identity.NewBroadcaster(),
		accounts:    make(map[string]account),
		calls:       make(map[string]int),
	}
}

// AddAccount registers credentials that sign in to session.
func (fp *FakeProvider) AddAccount(identifier, secret string, session sessions.Session) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.accounts[identifier] = account{secret: secret, session: session}
}

func (fp *FakeProvider) SignInWithPassword(ctx context.Context, identifier, secret string) (*sessions.Session, error) {
	fp.lock.Lock()
	fp.calls["SignInWithPassword"]++
	acc, ok := fp.accounts[identifier]
	signInErr := fp.SignInErr
	emit := fp.EmitOnSignIn
	fp.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if signInErr != nil {
		return nil, signInErr
	}
	if !ok || acc.secret != secret {
		return nil, identity.NewError(identity.ErrInvalidCredentials, "Invalid login credentials", nil)
	}

	session := acc.session.Clone()
	if emit {
		fp.Emit(identity.EventSignedIn, session)
	}
	return session, nil
}

func (fp *FakeProvider) SignOut(ctx context.Context) error {
	fp.lock.Lock()
	fp.calls["SignOut"]++
	err := fp.SignOutErr
	fp.lock.Unlock()
	return err
}

func (fp *FakeProvider) SetSession(ctx context.Context, tokens sessions.Tokens) (*sessions.Session, error) {
	fp.lock.Lock()
	fp.calls["SetSession"]++
	fn := fp.SetSessionFunc
	fp.lock.Unlock()

	if fn == nil {
		return nil, identity.NewError(identity.ErrInvalidSession, "session not found", nil)
	}
	return fn(ctx, tokens)
}

// Calls returns how many times method has been called.
func (fp *FakeProvider) Calls(method string) int {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return fp.calls[method]
}

// Configure sets the scripting fields under the provider lock.
func (fp *FakeProvider) Configure(fn func(fp *FakeProvider)) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fn(fp)
}
