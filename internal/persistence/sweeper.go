package persistence

import (
	"context"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/draftforge/go-contract-session/internal/metrics"
	"github.com/draftforge/go-contract-session/internal/session"
)

// ArtifactChecker reports whether a rendered final document still exists for
// a session. Completed sessions with a surviving artifact are never swept.
type ArtifactChecker func(sessionID string) bool

// ActiveSessions returns the ids of sessions with a currently live client
// connection. Used by the abandoned sweep only.
type ActiveSessions func() map[string]struct{}

// Sweeper reclaims stale and abandoned sessions from the local store. The
// remote backend expires keys natively, so only the in-process store needs
// sweeping. Each record is read, judged and deleted without holding any
// session-level lock: a session inside a transaction has just been rewritten
// and will not appear stale in the same pass.
type Sweeper struct {
	store    *MemoryStore
	ttl      session.TTLPolicy
	clock    time2.Clock
	interval time.Duration
	grace    time.Duration

	artifactExists ArtifactChecker
	activeSessions ActiveSessions

	logger zerolog.Logger
}

func NewSweeper(store *MemoryStore, ttl session.TTLPolicy, clock time2.Clock, interval, grace time.Duration, artifactExists ArtifactChecker, activeSessions ActiveSessions) *Sweeper {
	if artifactExists == nil {
		artifactExists = func(string) bool { return false }
	}
	if activeSessions == nil {
		activeSessions = func() map[string]struct{} { return nil }
	}
	return &Sweeper{
		store:          store,
		ttl:            ttl,
		clock:          clock,
		interval:       interval,
		grace:          grace,
		artifactExists: artifactExists,
		activeSessions: activeSessions,
		logger:         log.With().Str("component", "session_sweeper").Logger(),
	}
}

// Run executes both sweeps on a fixed interval until ctx is canceled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info().Dur("interval", sw.interval).Msg("Session sweeper started")

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info().Msg("Session sweeper stopped")
			return
		case <-ticker.C:
			sw.SweepStale(ctx)
			sw.SweepAbandoned(ctx)
		}
	}
}

// SweepStale deletes sessions whose age exceeds the TTL horizon for their
// current state. A completed session whose rendered document still exists is
// kept regardless of age.
func (sw *Sweeper) SweepStale(ctx context.Context) (deleted int) {
	now := sw.clock.Now()

	for _, sess := range sw.store.All() {
		horizon := sw.ttl.ForState(sess.State)
		if now.Sub(sess.UpdatedAt) <= horizon {
			continue
		}
		if sess.State == session.StateCompleted && sw.artifactExists(sess.ID) {
			continue
		}

		sw.logger.Info().
			Str("session_id", sess.ID).
			Str("state", string(sess.State)).
			Time("updated_at", sess.UpdatedAt).
			Msg("Deleting stale session")

		if err := sw.store.Delete(ctx, sess.ID); err != nil {
			sw.logger.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to delete stale session")
			continue
		}
		metrics.SweepDeletions.WithLabelValues("stale").Inc()
		deleted++
	}

	if deleted > 0 {
		sw.logger.Info().Int("deleted", deleted).Msg("Stale sweep finished")
	}
	return deleted
}

// SweepAbandoned deletes sessions that are empty, have no live connection and
// have passed the grace period. This keeps a session opened and immediately
// closed from lingering for the full draft horizon.
func (sw *Sweeper) SweepAbandoned(ctx context.Context) (deleted int) {
	now := sw.clock.Now()
	active := sw.activeSessions()

	for _, sess := range sw.store.All() {
		if _, isActive := active[sess.ID]; isActive {
			continue
		}
		if !sess.IsEmpty() {
			continue
		}
		if now.Sub(sess.UpdatedAt) <= sw.grace {
			continue
		}

		sw.logger.Info().Str("session_id", sess.ID).Msg("Deleting abandoned empty session")

		if err := sw.store.Delete(ctx, sess.ID); err != nil {
			sw.logger.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to delete abandoned session")
			continue
		}
		metrics.SweepDeletions.WithLabelValues("abandoned").Inc()
		deleted++
	}

	if deleted > 0 {
		sw.logger.Info().Int("deleted", deleted).Msg("Abandoned sweep finished")
	}
	return deleted
}
