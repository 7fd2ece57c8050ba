package config

import "time"

type Config interface {
	EnvConfig
	StoreConfig
	IdentityConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

// StoreConfig selects and parameterises the session store backing.
type StoreConfig interface {
	GetPlatform() string
	GetSessionKey() string
	GetDataFolder() string
	GetEncryptionPassphrase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
	GetDatabaseURL() string
}

// IdentityConfig describes the OIDC identity provider the session is reconciled against.
type IdentityConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetScopes() []string
	GetAutoRefresh() bool
	GetRefreshLeeway() time.Duration
	GetRefreshRetry() time.Duration
	GetHTTPTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Store
	Identity
}

// New returns configuration read from the environment only.
func New() Config {
	return newConfig(nil)
}

// Load returns configuration read from the environment, falling back to the
// values in the YAML file at path. An empty path behaves like New.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	values, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return newConfig(values), nil
}

func newConfig(values fileValues) Config {
	src := source{file: values}
	return mainConfig{
		EnvVars:  EnvVars{src: src},
		Store:    Store{src: src},
		Identity: Identity{src: src},
	}
}
