package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendFallbacks counts calls that were redirected from the remote
	// backend to the local store after a connectivity failure.
	BackendFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contract",
		Subsystem: "store",
		Name:      "backend_fallbacks_total",
		Help:      "Store calls that fell back from Redis to the in-process backend",
	}, []string{"op"})

	// RemoteEnabled reports whether the remote backend is currently active.
	RemoteEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "contract",
		Subsystem: "store",
		Name:      "remote_enabled",
		Help:      "1 while the Redis backend is enabled, 0 after demotion",
	})

	// LockWaitSeconds observes how long guarded transactions waited for the
	// per-session lock.
	LockWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "contract",
		Subsystem: "session",
		Name:      "lock_wait_seconds",
		Help:      "Time spent acquiring exclusive session access",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	// SweepDeletions counts sessions reclaimed by the background sweeps.
	SweepDeletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contract",
		Subsystem: "session",
		Name:      "sweep_deletions_total",
		Help:      "Sessions deleted by the stale and abandoned sweeps",
	}, []string{"reason"})
)
