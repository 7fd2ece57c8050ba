// Package storetest holds the behaviour every sessions.Store backing must share.
package storetest

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/stretchr/testify/require"
)

// RunContract exercises the single-slot semantics against stores built by newStore.
// Each subtest gets a fresh, empty store.
func RunContract(t *testing.T, newStore func(t *testing.T) sessions.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("load empty is not an error", func(t *testing.T) {
		s := newStore(t)
		value, found, err := s.Load(ctx)
		require.NoError(t, err)
		require.False(t, found)
		require.Empty(t, value)
	})

	t.Run("save then load", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, `{"access_token":"a","refresh_token":"b"}`))

		value, found, err := s.Load(ctx)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, `{"access_token":"a","refresh_token":"b"}`, value)
	})

	t.Run("save overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, "first"))
		require.NoError(t, s.Save(ctx, "second"))

		value, found, err := s.Load(ctx)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "second", value)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Delete(ctx))

		require.NoError(t, s.Save(ctx, "value"))
		require.NoError(t, s.Delete(ctx))
		require.NoError(t, s.Delete(ctx))

		_, found, err := s.Load(ctx)
		require.NoError(t, err)
		require.False(t, found)
	})
}
