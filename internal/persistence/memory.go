package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/draftforge/go-contract-session/internal/session"
)

// MemoryStore is the in-process fallback backend: serialized payloads plus a
// parallel expiry map and a per-identity index, all guarded by one coarse
// mutex. Expiry is enforced lazily on read and by the background sweeper.
type MemoryStore struct {
	mu sync.Mutex

	payloads map[string][]byte
	expires  map[string]time.Time

	// sessionUsers tracks which identities each session currently names, so
	// index entries can be removed when ownership changes.
	sessionUsers map[string]map[string]struct{}

	// userIndex is identity -> session id -> update timestamp.
	userIndex map[string]map[string]time.Time

	ttl   session.TTLPolicy
	clock time2.Clock
}

func NewMemoryStore(ttl session.TTLPolicy, clock time2.Clock) *MemoryStore {
	return &MemoryStore{
		payloads:     map[string][]byte{},
		expires:      map[string]time.Time{},
		sessionUsers: map[string]map[string]struct{}{},
		userIndex:    map[string]map[string]time.Time{},
		ttl:          ttl,
		clock:        clock,
	}
}

func (m *MemoryStore) Save(_ context.Context, sess *session.Session) error {
	now := m.clock.Now()
	sess.Touch(now)

	data, err := session.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.payloads[sess.ID] = data
	m.expires[sess.ID] = sess.UpdatedAt.Add(m.ttl.ForSession(sess))
	m.updateIndexesLocked(sess)

	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	if m.evictIfExpiredLocked(id) {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	data, ok := m.payloads[id]
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}

	sess, err := session.Unmarshal(data)
	if err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("Corrupt session payload, treating as not found")
		return nil, ErrNotFound
	}
	return sess, nil
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, id string, creatorID string) (*session.Session, error) {
	sess, err := m.Load(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	sess = session.New(id, creatorID)
	if err := m.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *MemoryStore) ListByIdentity(ctx context.Context, identity string) ([]*session.Session, error) {
	if identity == "" {
		return nil, nil
	}

	m.mu.Lock()
	idx := m.userIndex[identity]
	ids := make([]string, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return idx[ids[i]].After(idx[ids[j]]) })
	m.mu.Unlock()

	var sessions []*session.Session
	var stale []string

	for _, id := range ids {
		sess, err := m.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !sessionNamesIdentity(sess, identity) {
			stale = append(stale, id)
			continue
		}
		sessions = append(sessions, sess)
	}

	if len(stale) > 0 {
		m.mu.Lock()
		for _, id := range stale {
			if idx, ok := m.userIndex[identity]; ok {
				delete(idx, id)
			}
		}
		if idx, ok := m.userIndex[identity]; ok && len(idx) == 0 {
			delete(m.userIndex, identity)
		}
		m.mu.Unlock()
	}

	return sessions, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
	return nil
}

// All decodes every live session. Corrupt or expired records are skipped.
// Used by the background sweeper, which judges each record without holding
// any session-level lock.
func (m *MemoryStore) All() []*session.Session {
	m.mu.Lock()
	payloads := make(map[string][]byte, len(m.payloads))
	for id, data := range m.payloads {
		payloads[id] = data
	}
	m.mu.Unlock()

	sessions := make([]*session.Session, 0, len(payloads))
	for id, data := range payloads {
		sess, err := session.Unmarshal(data)
		if err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("Skipping corrupt session payload in sweep")
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions
}

func (m *MemoryStore) evictIfExpiredLocked(id string) bool {
	expire, ok := m.expires[id]
	if !ok || m.clock.Now().Before(expire) {
		return false
	}
	m.removeLocked(id)
	return true
}

func (m *MemoryStore) removeLocked(id string) {
	delete(m.payloads, id)
	delete(m.expires, id)
	delete(m.sessionUsers, id)
	for identity, idx := range m.userIndex {
		delete(idx, id)
		if len(idx) == 0 {
			delete(m.userIndex, identity)
		}
	}
}

func (m *MemoryStore) updateIndexesLocked(sess *session.Session) {
	next := map[string]struct{}{}
	for _, identity := range sess.Participants() {
		next[identity] = struct{}{}
	}

	for identity := range m.sessionUsers[sess.ID] {
		if _, still := next[identity]; !still {
			if idx, ok := m.userIndex[identity]; ok {
				delete(idx, sess.ID)
				if len(idx) == 0 {
					delete(m.userIndex, identity)
				}
			}
		}
	}

	for identity := range next {
		idx, ok := m.userIndex[identity]
		if !ok {
			idx = map[string]time.Time{}
			m.userIndex[identity] = idx
		}
		idx[sess.ID] = sess.UpdatedAt
	}

	m.sessionUsers[sess.ID] = next
}
