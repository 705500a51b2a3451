package config

import (
	"time"

	"github.com/draftforge/go-contract-session/internal/util"
)

// Redis connection settings. An empty URL means the remote backend is not
// configured and the service runs on the in-process store only.
type Redis struct {
	URL string
}

// SessionTTL holds the per-lifecycle-tier expiry horizons.
type SessionTTL struct {
	DraftHours  int
	FilledHours int
	SignedDays  int
}

// Lock holds cross-process lock acquisition settings.
type Lock struct {
	TTL            time.Duration
	AcquireTimeout time.Duration
	RetryInterval  time.Duration
}

// Sweep holds background cleanup settings for the local backend.
type Sweep struct {
	Interval       time.Duration
	AbandonedGrace time.Duration
}

type Echo struct {
	ListenAddress string
}

// Server is the root configuration, populated from the environment.
type Server struct {
	Redis         Redis
	SessionTTL    SessionTTL
	Lock          Lock
	Sweep         Sweep
	Echo          Echo
	DocumentsDir  string
	CategoriesDir string
}

// DefaultServiceConfigFromEnv returns the server config with all values read
// from the environment, falling back to development defaults.
func DefaultServiceConfigFromEnv() Server {
	return Server{
		Redis: Redis{
			URL: util.GetEnv("SESSION_REDIS_URL", ""),
		},
		SessionTTL: SessionTTL{
			DraftHours:  util.GetEnvAsInt("SESSION_DRAFT_TTL_HOURS", 24),
			FilledHours: util.GetEnvAsInt("SESSION_FILLED_TTL_HOURS", 168),
			SignedDays:  util.GetEnvAsInt("SESSION_SIGNED_TTL_DAYS", 365),
		},
		Lock: Lock{
			TTL:            util.GetEnvAsDuration("SESSION_LOCK_TTL", 10*time.Second),
			AcquireTimeout: util.GetEnvAsDuration("SESSION_LOCK_ACQUIRE_TIMEOUT", 5*time.Second),
			RetryInterval:  util.GetEnvAsDuration("SESSION_LOCK_RETRY_INTERVAL", 50*time.Millisecond),
		},
		Sweep: Sweep{
			Interval:       util.GetEnvAsDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
			AbandonedGrace: util.GetEnvAsDuration("SESSION_ABANDONED_GRACE", 5*time.Minute),
		},
		Echo: Echo{
			ListenAddress: util.GetEnv("SERVER_LISTEN_ADDRESS", ":8080"),
		},
		DocumentsDir:  util.GetEnv("SESSION_DOCUMENTS_DIR", "data/documents"),
		CategoriesDir: util.GetEnv("SESSION_CATEGORIES_DIR", "data/categories"),
	}
}
