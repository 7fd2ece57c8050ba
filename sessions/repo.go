package sessions

import (
	"context"
	"errors"
)

// DefaultKey is the fixed slot name the serialized session is stored under.
const DefaultKey = "auth_session"

// ErrStorageUnavailable wraps failures of the underlying storage medium.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// Store is a durable single slot holding at most one serialized session.
// Implementations hold no business logic.
type Store interface {
	// Save overwrites any existing record
	Save(ctx context.Context, serialized string) error

	// Load returns the saved record; found is false when nothing is stored
	Load(ctx context.Context) (serialized string, found bool, err error)

	// Delete removes the record, deleting an empty slot is not an error
	Delete(ctx context.Context) error
}
