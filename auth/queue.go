package auth

import (
	"sync"

	"github.com/jrsteele09/go-auth-session/identity"
)

// envelope is a queued event plus the explicit-operation count at the time it
// was received.
type envelope struct {
	event    identity.Event
	explicit uint64
}

// mailbox is an unbounded FIFO of provider events. push never blocks, so the
// provider's emitting goroutine is never held up by reconciliation.
type mailbox struct {
	lock   sync.Mutex
	items  []envelope
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) push(env envelope) {
	m.lock.Lock()
	m.items = append(m.items, env)
	m.lock.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// take removes and returns everything queued so far, oldest first.
func (m *mailbox) take() []envelope {
	m.lock.Lock()
	defer m.lock.Unlock()
	items := m.items
	m.items = nil
	return items
}

func (m *mailbox) len() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.items)
}
