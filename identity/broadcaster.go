package identity

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/sessions"
)

// Broadcaster implements OnAuthStateChange for providers. Handlers are called
// synchronously, in registration order, on the emitting goroutine.
type Broadcaster struct {
	lock     sync.RWMutex
	order    []string
	handlers map[string]Handler
	nowFunc  func() time.Time
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		handlers: make(map[string]Handler),
		nowFunc:  time.Now,
	}
}

type subscription struct {
	once        sync.Once
	unsubscribe func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}

func (b *Broadcaster) OnAuthStateChange(handler Handler) Subscription {
	id := uuid.NewString()

	b.lock.Lock()
	b.handlers[id] = handler
	b.order = append(b.order, id)
	b.lock.Unlock()

	return &subscription{unsubscribe: func() { b.remove(id) }}
}

func (b *Broadcaster) remove(id string) {
	b.lock.Lock()
	defer b.lock.Unlock()

	delete(b.handlers, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Emit delivers an event to every current subscriber. Each handler gets its own
// copy of the session.
func (b *Broadcaster) Emit(kind EventKind, session *sessions.Session) Event {
	b.lock.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.lock.RUnlock()

	ev := Event{ID: uuid.NewString(), Kind: kind, Session: session.Clone(), At: b.nowFunc()}
	for _, h := range handlers {
		delivered := ev
		delivered.Session = session.Clone()
		h(delivered)
	}
	return ev
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.handlers)
}
