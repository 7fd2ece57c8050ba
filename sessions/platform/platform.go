// Package platform selects the session store backing for the running platform.
package platform

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jrsteele09/go-auth-session/internal/config"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/jrsteele09/go-auth-session/sessions/redisstore"
	fakesessionrepo "github.com/jrsteele09/go-auth-session/sessions/repofakes"
	"github.com/jrsteele09/go-auth-session/sessions/securestore"
	"github.com/jrsteele09/go-auth-session/sessions/sqlstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// OpenStore returns the Store for cfg.GetPlatform() and a func releasing its
// resources.
//
//   - native: encrypted file in the data folder
//   - web: Redis key
//   - server: Postgres row, migrations applied on open
//   - memory: process-local, lost on exit
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (sessions.Store, func() error, error) {
	key := cfg.GetSessionKey()
	if key == "" {
		key = sessions.DefaultKey
	}
	logger = logger.With().Str("platform", cfg.GetPlatform()).Str("session_key", key).Logger()

	switch cfg.GetPlatform() {
	case config.PlatformNative:
		dir := filepath.Join(cfg.GetDataFolder(), "sessions")
		store, err := securestore.New(dir, key, cfg.GetEncryptionPassphrase())
		if err != nil {
			return nil, nil, apperrors.Wrapf(err, "[platform.OpenStore] native store")
		}
		logger.Debug().Str("dir", dir).Msg("Using encrypted file session store")
		return store, noClose, nil

	case config.PlatformWeb:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.GetRedisAddr()).Msg("Redis not reachable yet")
		}
		logger.Debug().Str("addr", cfg.GetRedisAddr()).Msg("Using Redis session store")
		return redisstore.New(client, cfg.GetRedisPrefix(), key), client.Close, nil

	case config.PlatformServer:
		if cfg.GetDatabaseURL() == "" {
			return nil, nil, fmt.Errorf("[platform.OpenStore] DATABASE_URL is required for the %s platform", config.PlatformServer)
		}
		db, err := sqlstore.Connect(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, nil, apperrors.Wrapf(err, "[platform.OpenStore] server store")
		}
		if err := sqlstore.Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, nil, apperrors.Wrapf(err, "[platform.OpenStore] migrate")
		}
		logger.Debug().Msg("Using Postgres session store")
		return sqlstore.New(db, key), db.Close, nil

	case config.PlatformMemory:
		logger.Warn().Msg("Using in-memory session store, sessions will not survive a restart")
		return fakesessionrepo.NewFakeSessionStore(), noClose, nil

	default:
		return nil, nil, apperrors.Wrapf(apperrors.ErrUnsupportedBacking, "[platform.OpenStore] platform %q", cfg.GetPlatform())
	}
}

func noClose() error { return nil }
