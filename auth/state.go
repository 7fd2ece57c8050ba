package auth

import "github.com/jrsteele09/go-auth-session/sessions"

type Status int

const (
	StatusInitializing Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// State is a snapshot of the controller. User is non-nil iff authenticated.
type State struct {
	User    *sessions.User
	Loading bool // True until the startup restore has finished
}

func (s State) Status() Status {
	switch {
	case s.Loading:
		return StatusInitializing
	case s.User != nil:
		return StatusAuthenticated
	default:
		return StatusUnauthenticated
	}
}

func (s State) clone() State {
	return State{User: s.User.Clone(), Loading: s.Loading}
}
