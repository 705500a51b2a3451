package persistence

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/draftforge/go-contract-session/internal/session"
)

var (
	// ErrNotFound is returned when a session id is unknown to the active
	// backend. Corrupt payloads surface as ErrNotFound on read paths.
	ErrNotFound = errors.New("session not found")

	// ErrLockTimeout is returned when exclusive access could not be obtained
	// within the configured wait budget. Callers should treat it as retryable.
	ErrLockTimeout = errors.New("session lock timeout")
)

// Store is the backend contract shared by the remote and local stores.
type Store interface {
	// Load returns the session or ErrNotFound.
	Load(ctx context.Context, id string) (*session.Session, error)

	// Save persists the session, advancing its update timestamp and TTL.
	Save(ctx context.Context, s *session.Session) error

	// GetOrCreate loads the session, creating an idle one when absent.
	GetOrCreate(ctx context.Context, id string, creatorID string) (*session.Session, error)

	// ListByIdentity returns the sessions the identity participates in,
	// most recently updated first.
	ListByIdentity(ctx context.Context, identity string) ([]*session.Session, error)

	// Delete removes the session record and its index entries.
	Delete(ctx context.Context, id string) error
}

// LockClient is the cross-process lock surface of the remote backend.
type LockClient interface {
	// AcquireLock attempts a single non-blocking acquisition of the lock for
	// the session id, storing token with the given TTL.
	AcquireLock(ctx context.Context, id string, token string, ttl time.Duration) (bool, error)

	// ReleaseLock deletes the lock only while it still holds token.
	ReleaseLock(ctx context.Context, id string, token string) error
}
