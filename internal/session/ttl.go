package session

import "time"

// TTLPolicy assigns an expiry horizon to a session based on its lifecycle
// stage: drafts are short-lived, filled documents survive the signing window
// and completed contracts are retained long-term. Horizons never decrease
// along the lifecycle.
type TTLPolicy struct {
	Draft  time.Duration
	Filled time.Duration
	Signed time.Duration
}

// DefaultTTLPolicy mirrors the recognized configuration defaults.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Draft:  24 * time.Hour,
		Filled: 7 * 24 * time.Hour,
		Signed: 365 * 24 * time.Hour,
	}
}

// ForState returns the horizon applying to a given lifecycle state.
func (p TTLPolicy) ForState(st State) time.Duration {
	switch st {
	case StateBuilt, StateReadyToSign:
		return p.Filled
	case StateCompleted:
		return p.Signed
	default:
		return p.Draft
	}
}

// ForSession returns the horizon for the session's current state, never less
// than one second so a freshly written record cannot expire immediately.
func (p TTLPolicy) ForSession(s *Session) time.Duration {
	ttl := p.ForState(s.State)
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
