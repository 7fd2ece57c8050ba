package redisstore

import (
	"context"
	"errors"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/redis/go-redis/v9"
)

var _ sessions.Store = (*Store)(nil)

// Store keeps the serialized session under a single Redis key, the
// key-value area used by web deployments.
type Store struct {
	redis redis.UniversalClient
	key   string
}

// New returns a store using "<prefix>:<key>".
func New(client redis.UniversalClient, prefix, key string) *Store {
	if prefix != "" {
		key = prefix + ":" + key
	}
	return &Store{redis: client, key: key}
}

func (s *Store) Save(ctx context.Context, serialized string) error {
	if err := s.redis.Set(ctx, s.key, serialized, 0).Err(); err != nil {
		return apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (string, bool, error) {
	value, err := s.redis.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	return value, true, nil
}

func (s *Store) Delete(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return apperrors.Join(sessions.ErrStorageUnavailable, err)
	}
	return nil
}
