package persistence

import (
	"context"
	"sync"

	"github.com/draftforge/go-contract-session/internal/session"
)

// lockTable is an arena of per-session in-process locks. Entries are created
// once under the table mutex, so "lock doesn't exist yet" races cannot hand
// two callers distinct locks for the same id. Acquisition is channel-based so
// waiters suspend cooperatively and honor context cancellation instead of
// blocking a thread.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{locks: map[string]chan struct{}{}}
}

func (t *lockTable) get(id string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[id] = ch
	}
	return ch
}

// acquire blocks until the per-id lock is held or ctx is done.
func (t *lockTable) acquire(ctx context.Context, id string) error {
	select {
	case t.get(id) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *lockTable) release(id string) {
	<-t.get(id)
}

// heldLocksKey marks session locks already held along the current call chain,
// mapping each held id to the live snapshot of the outermost transaction. A
// nested WithSession on the same id mutates that snapshot directly instead of
// deadlocking or racing the outer save with its own load and persist.
type heldLocksKey struct{}

func heldSession(ctx context.Context, id string) (*session.Session, bool) {
	held, _ := ctx.Value(heldLocksKey{}).(map[string]*session.Session)
	sess, ok := held[id]
	return sess, ok
}

func contextWithHeld(ctx context.Context, id string, sess *session.Session) context.Context {
	prev, _ := ctx.Value(heldLocksKey{}).(map[string]*session.Session)
	held := make(map[string]*session.Session, len(prev)+1)
	for k, v := range prev {
		held[k] = v
	}
	held[id] = sess
	return context.WithValue(ctx, heldLocksKey{}, held)
}
