package persistence

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/draftforge/go-contract-session/internal/metrics"
	"github.com/draftforge/go-contract-session/internal/session"
)

// RemoteBackend is what the router needs from the remote store: the shared
// store contract, the cross-process lock and a health probe.
type RemoteBackend interface {
	Store
	LockClient
	Ping(ctx context.Context) error
}

// RouterOptions holds lock acquisition tuning.
type RouterOptions struct {
	LockTTL            time.Duration
	LockAcquireTimeout time.Duration
	LockRetryInterval  time.Duration
}

func (o *RouterOptions) applyDefaults() {
	if o.LockTTL <= 0 {
		o.LockTTL = 10 * time.Second
	}
	if o.LockAcquireTimeout <= 0 {
		o.LockAcquireTimeout = 5 * time.Second
	}
	if o.LockRetryInterval <= 0 {
		o.LockRetryInterval = 50 * time.Millisecond
	}
}

// Router fronts the remote and local backends. It prefers the remote store
// while enabled, demotes to the local store on any backend failure and stays
// demoted until an explicit Probe succeeds. Backend failures never cross into
// business logic.
type Router struct {
	remote RemoteBackend // nil in local-only deployments
	local  *MemoryStore

	locks *lockTable
	opts  RouterOptions
	clock time2.Clock

	remoteDisabled atomic.Bool
}

func NewRouter(remote RemoteBackend, local *MemoryStore, opts RouterOptions, clock time2.Clock) *Router {
	opts.applyDefaults()
	r := &Router{
		remote: remote,
		local:  local,
		locks:  newLockTable(),
		opts:   opts,
		clock:  clock,
	}
	if remote != nil {
		metrics.RemoteEnabled.Set(1)
	} else {
		metrics.RemoteEnabled.Set(0)
	}
	return r
}

func (r *Router) remoteEnabled() bool {
	return r.remote != nil && !r.remoteDisabled.Load()
}

// demote latches the remote backend off for subsequent calls. Recovery
// requires a successful Probe, not a silent retry.
func (r *Router) demote(op string, err error) {
	log.Error().Err(err).Str("op", op).Msg("Remote backend failed, falling back to local store")
	metrics.BackendFallbacks.WithLabelValues(op).Inc()
	if r.remoteDisabled.CompareAndSwap(false, true) {
		metrics.RemoteEnabled.Set(0)
		log.Warn().Msg("Remote backend disabled; session exclusivity degrades to single-process until re-enabled")
	}
}

// Probe checks remote health and re-enables the remote backend on success.
func (r *Router) Probe(ctx context.Context) error {
	if r.remote == nil {
		return errors.New("no remote backend configured")
	}
	if err := r.remote.Ping(ctx); err != nil {
		return err
	}
	if r.remoteDisabled.CompareAndSwap(true, false) {
		metrics.RemoteEnabled.Set(1)
		log.Info().Msg("Remote backend re-enabled after successful probe")
	}
	return nil
}

func (r *Router) Load(ctx context.Context, id string) (*session.Session, error) {
	if r.remoteEnabled() {
		sess, err := r.remote.Load(ctx, id)
		if err == nil || errors.Is(err, ErrNotFound) {
			return sess, err
		}
		r.demote("load", err)
	}
	return r.local.Load(ctx, id)
}

func (r *Router) Save(ctx context.Context, sess *session.Session) error {
	if r.remoteEnabled() {
		err := r.remote.Save(ctx, sess)
		if err == nil {
			return nil
		}
		r.demote("save", err)
	}
	return r.local.Save(ctx, sess)
}

func (r *Router) GetOrCreate(ctx context.Context, id string, creatorID string) (*session.Session, error) {
	if r.remoteEnabled() {
		sess, err := r.remote.GetOrCreate(ctx, id, creatorID)
		if err == nil {
			return sess, nil
		}
		r.demote("get_or_create", err)
	}
	return r.local.GetOrCreate(ctx, id, creatorID)
}

func (r *Router) ListByIdentity(ctx context.Context, identity string) ([]*session.Session, error) {
	if r.remoteEnabled() {
		sessions, err := r.remote.ListByIdentity(ctx, identity)
		if err == nil {
			return sessions, nil
		}
		r.demote("list_by_identity", err)
	}
	return r.local.ListByIdentity(ctx, identity)
}

func (r *Router) Delete(ctx context.Context, id string) error {
	if r.remoteEnabled() {
		err := r.remote.Delete(ctx, id)
		if err == nil {
			return nil
		}
		r.demote("delete", err)
	}
	return r.local.Delete(ctx, id)
}

// WithSession runs fn under exclusive per-session access: acquire, load,
// mutate, persist on success, always release. A missing id surfaces as
// ErrNotFound; fn errors skip persistence but never skip release. Nested
// calls on an id already held by this call chain re-enter directly, mutating
// the outer transaction's snapshot so the outer save persists both writes.
func (r *Router) WithSession(ctx context.Context, id string, fn func(ctx context.Context, sess *session.Session) error) error {
	if sess, ok := heldSession(ctx, id); ok {
		return fn(ctx, sess)
	}

	waitStart := r.clock.Now()

	lockCtx, cancel := context.WithTimeout(ctx, r.opts.LockAcquireTimeout)
	defer cancel()

	if err := r.locks.acquire(lockCtx, id); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.Wrapf(ErrLockTimeout, "session %s", id)
		}
		return err
	}
	defer r.locks.release(id)

	if r.remoteEnabled() {
		token := uuid.New().String()
		acquired, err := r.acquireRemoteLock(lockCtx, id, token)
		if err != nil {
			return err
		}
		if acquired {
			defer func() {
				if relErr := r.remote.ReleaseLock(context.WithoutCancel(ctx), id, token); relErr != nil {
					// Best-effort: an unreleased lock expires via TTL.
					log.Warn().Err(relErr).Str("session_id", id).Msg("Failed to release session lock")
				}
			}()
		}
	}

	metrics.LockWaitSeconds.Observe(r.clock.Since(waitStart).Seconds())

	sess, err := r.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(contextWithHeld(ctx, id, sess), sess); err != nil {
		return err
	}
	return r.Save(ctx, sess)
}

// acquireRemoteLock polls SET NX until acquired or the wait budget runs out.
// A backend failure demotes and lets the transaction proceed under
// single-process exclusivity, which is the accepted degradation.
func (r *Router) acquireRemoteLock(ctx context.Context, id string, token string) (bool, error) {
	for {
		ok, err := r.remote.AcquireLock(ctx, id, token, r.opts.LockTTL)
		if err != nil {
			r.demote("acquire_lock", err)
			return false, nil
		}
		if ok {
			return true, nil
		}

		timer := time.NewTimer(r.opts.LockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return false, errors.Wrapf(ErrLockTimeout, "session %s", id)
			}
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}
