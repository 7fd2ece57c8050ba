package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/sessions"
)

var _ sessions.Store = (*FakeSessionStore)(nil)

// Operation names recorded in the store's operation log
const (
	OpSave   = "save"
	OpLoad   = "load"
	OpDelete = "delete"
)

// FakeSessionStore is an in-memory single-slot store. Latency and failures
// can be injected per operation for tests.
type FakeSessionStore struct {
	lock  sync.RWMutex
	value string
	found bool
	ops   []string

	// Optional test knobs, read under lock
	SaveDelay   func(serialized string) time.Duration
	SaveErr     error
	LoadErr     error
	DeleteErr   error
	LoadBlocker chan struct{} // Load waits until closed (or ctx done)
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{}
}

// NewFakeSessionStoreWith returns a store already holding serialized.
func NewFakeSessionStoreWith(serialized string) *FakeSessionStore {
	return &FakeSessionStore{value: serialized, found: true}
}

func (fs *FakeSessionStore) Save(ctx context.Context, serialized string) error {
	fs.lock.RLock()
	delay := fs.SaveDelay
	saveErr := fs.SaveErr
	fs.lock.RUnlock()

	if delay != nil {
		select {
		case <-time.After(delay(serialized)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.ops = append(fs.ops, OpSave)
	if saveErr != nil {
		return saveErr
	}
	fs.value = serialized
	fs.found = true
	return nil
}

func (fs *FakeSessionStore) Load(ctx context.Context) (string, bool, error) {
	fs.lock.RLock()
	blocker := fs.LoadBlocker
	fs.lock.RUnlock()

	if blocker != nil {
		select {
		case <-blocker:
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}

	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.ops = append(fs.ops, OpLoad)
	if fs.LoadErr != nil {
		return "", false, fs.LoadErr
	}
	return fs.value, fs.found, nil
}

func (fs *FakeSessionStore) Delete(_ context.Context) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.ops = append(fs.ops, OpDelete)
	if fs.DeleteErr != nil {
		return fs.DeleteErr
	}
	fs.value = ""
	fs.found = false
	return nil
}

// Snapshot returns the stored value without recording an operation.
func (fs *FakeSessionStore) Snapshot() (string, bool) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.value, fs.found
}

// Operations returns the operations performed so far, in order.
func (fs *FakeSessionStore) Operations() []string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return append([]string(nil), fs.ops...)
}

// Configure sets test knobs under the store lock.
func (fs *FakeSessionStore) Configure(fn func(fs *FakeSessionStore)) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fn(fs)
}
