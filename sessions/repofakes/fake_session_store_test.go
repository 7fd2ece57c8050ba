package fakesessionrepo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/sessions"
	fakesessionrepo "github.com/jrsteele09/go-auth-session/sessions/repofakes"
	"github.com/jrsteele09/go-auth-session/sessions/storetest"
	"github.com/stretchr/testify/require"
)

func TestFakeSessionStore_Contract(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) sessions.Store {
		return fakesessionrepo.NewFakeSessionStore()
	})
}

func TestFakeSessionStore_Knobs(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")

	fs := fakesessionrepo.NewFakeSessionStoreWith("seed")
	fs.Configure(func(fs *fakesessionrepo.FakeSessionStore) {
		fs.SaveErr = boom
		fs.SaveDelay = func(string) time.Duration { return time.Millisecond }
	})

	require.ErrorIs(t, fs.Save(ctx, "next"), boom)
	value, found := fs.Snapshot()
	require.True(t, found)
	require.Equal(t, "seed", value)
	require.Equal(t, []string{fakesessionrepo.OpSave}, fs.Operations())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	fs.Configure(func(fs *fakesessionrepo.FakeSessionStore) { fs.LoadBlocker = make(chan struct{}) })
	_, _, err := fs.Load(cancelled)
	require.ErrorIs(t, err, context.Canceled)
}
