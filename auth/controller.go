package auth

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	phaseNew int32 = iota
	phaseStarted
	phaseClosed
)

// Deps holds the controller's required collaborators.
type Deps struct {
	Store    sessions.Store    // Persistent single-slot session storage
	Provider identity.Provider // Remote identity provider
}

// SessionController owns the authentication state of the process. It restores
// the persisted session once at start, performs explicit sign in and sign out,
// and reconciles provider events into the store and the in-memory state.
type SessionController struct {
	store    sessions.Store
	provider identity.Provider
	logger   zerolog.Logger

	phase    atomic.Int32
	epoch    atomic.Uint64 // Bumped by every applied state change
	explicit atomic.Uint64 // Bumped by SignIn and SignOut only

	opLock     sync.Mutex   // Serializes persist + state mutations
	recovering bool         // Set by PASSWORD_RECOVERY until the next sign in or sign out. Guarded by opLock
	lock       sync.RWMutex // Guards state and observers
	state      State

	observers    map[uint64]chan State
	nextObserver uint64

	ready     chan struct{}
	readyOnce sync.Once

	inbox     *mailbox
	lifecycle sync.Mutex // Guards sub and consumer launch against Close
	sub       identity.Subscription
	ctx       context.Context // Used for event reconciliation, cancelled by Close
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// ControllerOption defines a function type to modify the SessionController instance.
type ControllerOption func(*SessionController)

func WithLogger(logger zerolog.Logger) ControllerOption {
	return func(c *SessionController) {
		c.logger = logger
	}
}

// NewSessionController creates a controller in the Initializing state. Call
// Start to restore the persisted session and begin reconciling events.
func NewSessionController(deps Deps, options ...ControllerOption) (*SessionController, error) {
	if deps.Store == nil {
		return nil, errors.New("[NewSessionController] Store is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("[NewSessionController] Provider is required")
	}

	c := &SessionController{
		store:     deps.Store,
		provider:  deps.Provider,
		logger:    log.Logger,
		state:     State{Loading: true},
		observers: make(map[uint64]chan State),
		ready:     make(chan struct{}),
		inbox:     newMailbox(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "session_controller").Logger()
	c.ctx, c.cancel = context.WithCancel(context.Background())

	return c, nil
}

// Start subscribes to provider events, restores the persisted session and
// starts the event consumer. It returns once the restore has finished; restore
// failures are logged, never returned.
func (c *SessionController) Start(ctx context.Context) error {
	if !c.phase.CompareAndSwap(phaseNew, phaseStarted) {
		if c.phase.Load() == phaseClosed {
			return ErrClosed
		}
		return ErrAlreadyStarted
	}

	c.lifecycle.Lock()
	if c.phase.Load() == phaseClosed {
		c.lifecycle.Unlock()
		c.resolveLoading()
		return ErrClosed
	}
	c.sub = c.provider.OnAuthStateChange(c.enqueue)
	c.lifecycle.Unlock()

	c.restore(ctx)

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.phase.Load() == phaseClosed {
		return ErrClosed
	}
	c.wg.Add(1)
	go c.consume()
	return nil
}

// Close unsubscribes from the provider, stops the consumer and closes every
// observer channel. Events still queued are dropped.
func (c *SessionController) Close() {
	if c.phase.Swap(phaseClosed) == phaseClosed {
		return
	}

	c.lifecycle.Lock()
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	c.lifecycle.Unlock()

	c.cancel()
	c.wg.Wait()
	c.resolveLoading()

	if pending := c.inbox.len(); pending > 0 {
		c.logger.Warn().Int("pending", pending).Msg("Dropped unprocessed auth events on close")
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	for id, ch := range c.observers {
		close(ch)
		delete(c.observers, id)
	}
}

// SignIn authenticates with the provider and persists the resulting session.
// On any failure the state and the store are left unchanged. Use Message to
// get a user-facing description of the error.
func (c *SessionController) SignIn(ctx context.Context, identifier, secret string) error {
	if c.phase.Load() == phaseClosed {
		return ErrClosed
	}

	session, err := c.provider.SignInWithPassword(ctx, identifier, secret)
	if err != nil {
		return errors.Wrap(err, "[SessionController.SignIn] provider sign in failed")
	}
	if !session.Usable() {
		return errors.Wrap(sessions.ErrIncompleteSession, "[SessionController.SignIn] provider returned a partial session")
	}

	c.opLock.Lock()
	defer c.opLock.Unlock()

	if err := c.persist(ctx, session); err != nil {
		return errors.Wrap(err, "[SessionController.SignIn] failed to persist session")
	}
	c.epoch.Add(1)
	c.explicit.Add(1)
	c.recovering = false
	c.setUser(&session.User)

	c.logger.Info().Str("user_id", session.User.ID).Msg("Signed in")
	return nil
}

// SignOut ends the session at the provider and locally. Provider and storage
// failures are logged; the local user is always cleared.
func (c *SessionController) SignOut(ctx context.Context) {
	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Provider sign out failed, clearing local session anyway")
	}

	c.opLock.Lock()
	defer c.opLock.Unlock()

	c.epoch.Add(1)
	c.explicit.Add(1)
	c.clearSession(ctx)
	c.logger.Info().Msg("Signed out")
}

func (c *SessionController) CurrentUser() *sessions.User {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state.User.Clone()
}

func (c *SessionController) IsLoading() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state.Loading
}

func (c *SessionController) State() State {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state.clone()
}

// Ready is closed once the startup restore has finished.
func (c *SessionController) Ready() <-chan struct{} {
	return c.ready
}

// Subscribe returns a channel holding the latest state, starting with the
// current one. Slow readers only miss intermediate states. The returned func
// closes the channel.
func (c *SessionController) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.phase.Load() == phaseClosed {
		ch <- c.state.clone()
		close(ch)
		return ch, func() {}
	}

	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = ch
	ch <- c.state.clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.lock.Lock()
			defer c.lock.Unlock()
			if existing, ok := c.observers[id]; ok {
				close(existing)
				delete(c.observers, id)
			}
		})
	}
}

func (c *SessionController) persist(ctx context.Context, session *sessions.Session) error {
	serialized, err := sessions.Encode(session)
	if err != nil {
		return err
	}
	return c.store.Save(ctx, serialized)
}

// clearSession deletes the stored record, clears the user and ends any password
// recovery hold. Caller holds opLock.
func (c *SessionController) clearSession(ctx context.Context) {
	if err := c.store.Delete(ctx); err != nil {
		c.logger.Err(err).Msg("Failed to delete stored session")
	}
	c.recovering = false
	c.setUser(nil)
}

func (c *SessionController) setUser(user *sessions.User) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.state.User = user.Clone()
	c.publishLocked()
}

func (c *SessionController) resolveLoading() {
	c.readyOnce.Do(func() {
		c.lock.Lock()
		c.state.Loading = false
		c.publishLocked()
		c.lock.Unlock()
		close(c.ready)
	})
}

// publishLocked replaces whatever each observer has not read yet with the
// current state. Caller holds c.lock.
func (c *SessionController) publishLocked() {
	for _, ch := range c.observers {
		select {
		case <-ch:
		default:
		}
		ch <- c.state.clone()
	}
}
