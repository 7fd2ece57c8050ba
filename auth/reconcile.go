package auth

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/sessions"
)

// restore rebuilds the session from the store once at startup. The provider
// is authoritative: the session it hands back replaces the stored one. If an
// explicit sign in, sign out or event lands while restore is in flight, the
// restore result is dropped. A panic is logged like any other restore failure.
func (c *SessionController) restore(ctx context.Context) {
	defer c.resolveLoading()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Err(fmt.Errorf("panic: %v", r)).Msg("Recovered while restoring session")
		}
	}()

	epoch := c.epoch.Load()

	serialized, found, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Err(err).Msg("Failed to load stored session")
		return
	}
	if !found {
		c.logger.Debug().Msg("No stored session")
		return
	}

	stored, err := sessions.Decode(serialized)
	if err == nil && !stored.Usable() {
		err = sessions.ErrIncompleteSession
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Discarding unreadable stored session")
		c.discardStored(ctx, epoch)
		return
	}

	restored, err := c.provider.SetSession(ctx, stored.Tokens())
	if err == nil && !restored.Usable() {
		err = sessions.ErrIncompleteSession
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Stored session rejected by provider")
		c.discardStored(ctx, epoch)
		return
	}

	c.opLock.Lock()
	defer c.opLock.Unlock()

	if c.epoch.Load() != epoch {
		c.logger.Debug().Msg("Session changed during restore, dropping restored session")
		return
	}
	if err := c.persist(ctx, restored); err != nil {
		c.logger.Err(err).Msg("Failed to persist restored session")
		return
	}
	c.epoch.Add(1)
	c.setUser(&restored.User)
	c.logger.Info().Str("user_id", restored.User.ID).Msg("Session restored")
}

func (c *SessionController) discardStored(ctx context.Context, epoch uint64) {
	c.opLock.Lock()
	defer c.opLock.Unlock()

	if c.epoch.Load() != epoch {
		return
	}
	if err := c.store.Delete(ctx); err != nil {
		c.logger.Err(err).Msg("Failed to delete stored session")
	}
}

func (c *SessionController) enqueue(ev identity.Event) {
	c.inbox.push(envelope{event: ev, explicit: c.explicit.Load()})
}

// consume drains the mailbox until Close.
func (c *SessionController) consume() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.inbox.signal:
			for _, env := range c.inbox.take() {
				if c.ctx.Err() != nil {
					return
				}
				c.reconcile(env)
			}
		}
	}
}

// reconcile applies one provider event. Events received before the latest
// SignIn or SignOut are stale and skipped. Failures and panics are logged so
// the next event is still processed.
func (c *SessionController) reconcile(env envelope) {
	ev := env.event
	logger := c.logger.With().Str("event", ev.Kind.String()).Str("event_id", ev.ID).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Err(fmt.Errorf("panic: %v", r)).Msg("Recovered while reconciling auth event")
		}
	}()

	c.opLock.Lock()
	defer c.opLock.Unlock()

	if env.explicit != c.explicit.Load() {
		logger.Debug().Msg("Skipping auth event superseded by an explicit sign in or sign out")
		return
	}

	switch ev.Kind {
	case identity.EventSignedIn, identity.EventUserUpdated, identity.EventTokenRefreshed:
		if !ev.Session.Usable() {
			if ev.Kind == identity.EventTokenRefreshed {
				logger.Info().Msg("Refresh produced no session, signing out")
				c.epoch.Add(1)
				c.clearSession(c.ctx)
				return
			}
			logger.Warn().Msg("Ignoring event without a usable session")
			return
		}
		if err := c.persist(c.ctx, ev.Session); err != nil {
			logger.Err(err).Msg("Failed to persist session from event")
			return
		}
		c.epoch.Add(1)
		if c.recovering {
			logger.Debug().Msg("Password recovery pending, stored tokens updated but user withheld")
			return
		}
		c.setUser(&ev.Session.User)
	case identity.EventSignedOut:
		c.epoch.Add(1)
		c.clearSession(c.ctx)
	case identity.EventPasswordRecovery:
		c.epoch.Add(1)
		c.recovering = true
		c.setUser(nil)
	default:
		logger.Debug().Msg("No action for auth event")
	}
}
