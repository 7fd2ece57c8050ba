package oidcprovider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/sessions"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// refreshToken exchanges a refresh token for a new token pair. A rejected
// refresh token is reported as ErrInvalidSession.
func (p *Provider) refreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := p.oauth.TokenSource(p.clientCtx(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classifyTokenError(err, identity.ErrInvalidSession, "Session expired")
	}
	return tok, nil
}

// scheduleRefreshLocked arms the refresh timer for tok. A zero delay means
// "leeway before expiry". Caller holds p.lock.
func (p *Provider) scheduleRefreshLocked(tok *oauth2.Token, delay time.Duration) {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if !p.autoRefresh || tok == nil || tok.RefreshToken == "" || p.ctx.Err() != nil {
		return
	}

	if delay == 0 {
		if tok.Expiry.IsZero() {
			return
		}
		delay = tok.Expiry.Add(-p.refreshLeeway).Sub(NowTimeFunc())
	}
	if delay < p.minRefreshInterval {
		delay = p.minRefreshInterval
	}

	gen := p.gen
	p.timer = time.AfterFunc(delay, func() { p.runRefresh(gen) })
}

// runRefresh is the timer callback. It gives up silently when the session it
// was armed for has since been replaced or cleared.
func (p *Provider) runRefresh(gen uint64) {
	p.lock.Lock()
	if gen != p.gen || p.token == nil {
		p.lock.Unlock()
		return
	}
	tok := p.token
	user := p.current.User.Clone()
	p.lock.Unlock()

	if p.ctx.Err() != nil {
		return
	}

	refreshed, err := p.refreshToken(p.ctx, tok.RefreshToken)
	var session *sessions.Session
	if err == nil {
		session, err = p.sessionFromToken(p.ctx, refreshed, user)
	}

	p.lock.Lock()
	if gen != p.gen {
		p.lock.Unlock()
		return
	}

	if err != nil {
		if !errors.Is(err, identity.ErrInvalidSession) && tok.Expiry.After(NowTimeFunc()) {
			p.logger.Warn().Err(err).Dur("retry_in", p.refreshRetry).Msg("Token refresh failed, will retry")
			p.scheduleRefreshLocked(tok, p.refreshRetry)
			p.lock.Unlock()
			return
		}

		p.clearLocked()
		p.lock.Unlock()
		p.logger.Err(err).Msg("Token refresh failed, session ended")
		p.Emit(identity.EventTokenRefreshed, nil)
		return
	}

	p.current = session.Clone()
	p.token = refreshed
	p.scheduleRefreshLocked(refreshed, 0)
	p.lock.Unlock()

	p.logger.Debug().Time("expires_at", refreshed.Expiry).Msg("Token refreshed")
	p.Emit(identity.EventTokenRefreshed, session)
}

// accessTokenExpiry reads the exp claim of a JWT access token without
// verifying it. Opaque tokens yield the zero time.
func accessTokenExpiry(accessToken string) time.Time {
	if accessToken == "" {
		return time.Time{}
	}
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func userFromInfo(info *oidc.UserInfo) (*sessions.User, error) {
	var claims struct {
		Name              *string `json:"name"`
		PreferredUsername *string `json:"preferred_username"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, err
	}
	metadata := map[string]any{}
	if err := info.Claims(&metadata); err != nil {
		return nil, err
	}
	if info.Subject == "" {
		return nil, errors.New("userinfo response has no subject")
	}

	name := utils.Value(claims.Name)
	if name == "" {
		name = utils.Value(claims.PreferredUsername)
	}
	return &sessions.User{
		ID:       info.Subject,
		Email:    info.Email,
		Name:     name,
		Metadata: metadata,
	}, nil
}

// classifyTokenError maps token endpoint failures. rejected is the kind used
// when the server answered with an OAuth2 error.
func classifyTokenError(err error, rejected error, fallback string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		msg := re.ErrorDescription
		if msg == "" {
			msg = fallback
		}
		if re.Response != nil && re.Response.StatusCode >= http.StatusInternalServerError {
			return identity.NewError(identity.ErrProviderUnavailable, msg, err)
		}
		return identity.NewError(rejected, msg, err)
	}
	return identity.NewError(identity.ErrProviderUnavailable, "Identity provider unreachable", err)
}

// classifyUserInfoError separates transport failures from a provider that
// refused the access token.
func classifyUserInfoError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return identity.NewError(identity.ErrProviderUnavailable, "Identity provider unreachable", err)
	}
	return identity.NewError(identity.ErrInvalidSession, "Session could not be verified", err)
}
