package config

import "time"

type Identity struct {
	src source
}

var _ IdentityConfig = Identity{}

// GetIssuerURL returns the OIDC issuer used for discovery (e.g., "https://auth.example.com")
func (i Identity) GetIssuerURL() string {
	return i.src.get("OIDC_ISSUER", "http://localhost:8080")
}

func (i Identity) GetClientID() string {
	return i.src.get("OIDC_CLIENT_ID", "splitmates-mobile")
}

// GetClientSecret is empty for public (mobile) clients
func (i Identity) GetClientSecret() string {
	return i.src.get("OIDC_CLIENT_SECRET", "")
}

func (i Identity) GetScopes() []string {
	return i.src.getList("OIDC_SCOPES", []string{"openid", "profile", "email", "offline_access"})
}

func (i Identity) GetAutoRefresh() bool {
	return i.src.getBool("SESSION_AUTO_REFRESH", true)
}

// GetRefreshLeeway is how long before access token expiry a refresh is attempted
func (i Identity) GetRefreshLeeway() time.Duration {
	return i.src.getDuration("SESSION_REFRESH_LEEWAY", time.Minute)
}

func (i Identity) GetRefreshRetry() time.Duration {
	return i.src.getDuration("SESSION_REFRESH_RETRY", 30*time.Second)
}

func (i Identity) GetHTTPTimeout() time.Duration {
	return i.src.getDuration("OIDC_HTTP_TIMEOUT", 15*time.Second)
}
