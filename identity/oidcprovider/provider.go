package oidcprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Config describes the upstream OIDC provider and the refresh policy.
type Config struct {
	IssuerURL     string
	ClientID      string
	ClientSecret  string // Empty for public clients
	Scopes        []string
	AutoRefresh   bool
	RefreshLeeway time.Duration // Refresh this long before access token expiry
	RefreshRetry  time.Duration // Retry delay after a transient refresh failure
	HTTPTimeout   time.Duration
}

// ConfigFrom maps the application identity config.
func ConfigFrom(c config.IdentityConfig) Config {
	return Config{
		IssuerURL:     c.GetIssuerURL(),
		ClientID:      c.GetClientID(),
		ClientSecret:  c.GetClientSecret(),
		Scopes:        c.GetScopes(),
		AutoRefresh:   c.GetAutoRefresh(),
		RefreshLeeway: c.GetRefreshLeeway(),
		RefreshRetry:  c.GetRefreshRetry(),
		HTTPTimeout:   c.GetHTTPTimeout(),
	}
}

var _ identity.Provider = (*Provider)(nil)

// Provider is an identity.Provider backed by an OAuth2/OIDC server. It signs in
// with the password grant, reads the user from the userinfo endpoint, revokes
// tokens on sign out and keeps the access token fresh in the background.
type Provider struct {
	*identity.Broadcaster

	oauth      oauth2.Config
	oidc       *oidc.Provider
	revokeURL  string
	httpClient *http.Client
	logger     zerolog.Logger

	autoRefresh        bool
	refreshLeeway      time.Duration
	refreshRetry       time.Duration
	minRefreshInterval time.Duration

	ctx    context.Context // Background refresh work, cancelled by Close
	cancel context.CancelFunc

	lock    sync.Mutex
	current *sessions.Session
	token   *oauth2.Token
	gen     uint64 // Bumped whenever the current session is replaced or cleared
	timer   *time.Timer
}

// ProviderOption defines a function type to modify the Provider instance.
type ProviderOption func(*Provider)

func WithLogger(logger zerolog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithMinRefreshInterval sets the floor between scheduled refreshes.
func WithMinRefreshInterval(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.minRefreshInterval = d
	}
}

// New discovers the provider's endpoints from cfg.IssuerURL.
func New(ctx context.Context, cfg Config, options ...ProviderOption) (*Provider, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("[oidcprovider.New] issuer URL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("[oidcprovider.New] client ID is required")
	}

	p := &Provider{
		Broadcaster:        identity.NewBroadcaster(),
		logger:             log.Logger,
		autoRefresh:        cfg.AutoRefresh,
		refreshLeeway:      cfg.RefreshLeeway,
		refreshRetry:       cfg.RefreshRetry,
		minRefreshInterval: 5 * time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.httpClient == nil {
		timeout := cfg.HTTPTimeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		p.httpClient = &http.Client{Timeout: timeout}
	}
	if p.refreshRetry <= 0 {
		p.refreshRetry = 30 * time.Second
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, p.httpClient), cfg.IssuerURL)
	if err != nil {
		return nil, identity.NewError(identity.ErrProviderUnavailable, "Identity provider unreachable",
			fmt.Errorf("failed to create OIDC provider: %w", err))
	}

	var extra struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, fmt.Errorf("[oidcprovider.New] discovery claims: %w", err)
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInHeader
	if cfg.ClientSecret == "" {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	p.oidc = provider
	p.revokeURL = extra.RevocationEndpoint
	p.oauth = oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       cfg.Scopes,
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.logger = p.logger.With().Str("component", "oidcprovider").Logger()

	return p, nil
}

// clientCtx routes oauth2 and go-oidc requests through the provider's HTTP client.
func (p *Provider) clientCtx(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	return oidc.ClientContext(ctx, p.httpClient)
}

func (p *Provider) SignInWithPassword(ctx context.Context, identifier, secret string) (*sessions.Session, error) {
	tok, err := p.oauth.PasswordCredentialsToken(p.clientCtx(ctx), identifier, secret)
	if err != nil {
		return nil, classifyTokenError(err, identity.ErrInvalidCredentials, "Login failed")
	}

	session, err := p.sessionFromToken(ctx, tok, nil)
	if err != nil {
		return nil, err
	}

	p.adopt(session, tok)
	p.Emit(identity.EventSignedIn, session)
	return session.Clone(), nil
}

// SetSession re-establishes a session from stored tokens. An expired access
// token is refreshed first; a live one is validated against userinfo.
func (p *Provider) SetSession(ctx context.Context, tokens sessions.Tokens) (*sessions.Session, error) {
	if tokens.RefreshToken == "" {
		return nil, identity.NewError(identity.ErrInvalidSession, "Refresh token missing", nil)
	}

	kind := identity.EventSignedIn
	tok := &oauth2.Token{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       accessTokenExpiry(tokens.AccessToken),
	}

	if tok.AccessToken == "" || (!tok.Expiry.IsZero() && !tok.Expiry.After(NowTimeFunc())) {
		refreshed, err := p.refreshToken(ctx, tokens.RefreshToken)
		if err != nil {
			return nil, err
		}
		tok = refreshed
		kind = identity.EventTokenRefreshed
	}

	session, err := p.sessionFromToken(ctx, tok, nil)
	if err != nil {
		return nil, err
	}

	p.adopt(session, tok)
	p.Emit(kind, session)
	return session.Clone(), nil
}

// SignOut revokes the current tokens and always clears local provider state.
// Revocation failures are returned after SIGNED_OUT has been emitted.
func (p *Provider) SignOut(ctx context.Context) error {
	p.lock.Lock()
	tok := p.token
	p.clearLocked()
	p.lock.Unlock()

	var errs []error
	if tok != nil && p.revokeURL != "" {
		if tok.RefreshToken != "" {
			if err := p.revoke(ctx, tok.RefreshToken, "refresh_token"); err != nil {
				p.logger.Err(err).Str("token_type", "refresh_token").Msg("Failed to revoke token")
				errs = append(errs, err)
			}
		}
		if tok.AccessToken != "" {
			if err := p.revoke(ctx, tok.AccessToken, "access_token"); err != nil {
				p.logger.Err(err).Str("token_type", "access_token").Msg("Failed to revoke token")
				errs = append(errs, err)
			}
		}
	}

	p.Emit(identity.EventSignedOut, nil)
	if len(errs) > 0 {
		return identity.NewError(identity.ErrProviderUnavailable, "Sign out could not be confirmed", errors.Join(errs...))
	}
	return nil
}

// ReloadUser re-reads the user from userinfo and emits USER_UPDATED.
func (p *Provider) ReloadUser(ctx context.Context) (*sessions.Session, error) {
	p.lock.Lock()
	tok, gen := p.token, p.gen
	p.lock.Unlock()
	if tok == nil {
		return nil, identity.NewError(identity.ErrInvalidSession, "Not signed in", nil)
	}

	session, err := p.sessionFromToken(ctx, tok, nil)
	if err != nil {
		return nil, err
	}

	p.lock.Lock()
	if gen != p.gen {
		p.lock.Unlock()
		return nil, identity.NewError(identity.ErrInvalidSession, "Session changed while reloading user", nil)
	}
	p.current = session
	p.lock.Unlock()

	p.Emit(identity.EventUserUpdated, session)
	return session.Clone(), nil
}

// Current returns the provider's view of the session, nil when signed out.
func (p *Provider) Current() *sessions.Session {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.current.Clone()
}

// Close stops background refresh.
func (p *Provider) Close() {
	p.cancel()
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Provider) adopt(session *sessions.Session, tok *oauth2.Token) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.gen++
	p.current = session.Clone()
	p.token = tok
	p.scheduleRefreshLocked(tok, 0)
}

func (p *Provider) clearLocked() {
	p.gen++
	p.current = nil
	p.token = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// sessionFromToken builds a session around tok. The user is read from
// userinfo unless known is given.
func (p *Provider) sessionFromToken(ctx context.Context, tok *oauth2.Token, known *sessions.User) (*sessions.Session, error) {
	user := known.Clone()
	if user == nil {
		info, err := p.oidc.UserInfo(p.clientCtx(ctx), oauth2.StaticTokenSource(tok))
		if err != nil {
			return nil, classifyUserInfoError(err)
		}
		if user, err = userFromInfo(info); err != nil {
			return nil, identity.NewError(identity.ErrInvalidSession, "Identity could not be read", err)
		}
	}

	session := &sessions.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    strings.ToLower(tok.Type()),
		User:         *user,
	}
	if !tok.Expiry.IsZero() {
		session.ExpiresAt = tok.Expiry.Unix()
	}
	return session, nil
}

// revoke implements RFC 7009 token revocation.
func (p *Provider) revoke(ctx context.Context, token, tokenTypeHint string) error {
	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", tokenTypeHint)
	form.Set("client_id", p.oauth.ClientID)
	if p.oauth.ClientSecret != "" {
		form.Set("client_secret", p.oauth.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("revocation endpoint returned %s", resp.Status)
	}
	return nil
}
