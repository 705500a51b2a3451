package persistence

import (
	"context"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/draftforge/go-contract-session/internal/session"
)

const (
	sessionKeyPrefix   = "session:"
	userIndexKeyPrefix = "user_sessions:"
	lockKeyPrefix      = "session_lock:"
)

// RedisStore persists sessions as single JSON keys with a native TTL and
// maintains a per-identity sorted index (score = update timestamp) for
// ListByIdentity. Index members are removed lazily when a listed session no
// longer names the identity.
type RedisStore struct {
	client *redis.Client
	ttl    session.TTLPolicy
	clock  time2.Clock
}

func NewRedisStore(client *redis.Client, ttl session.TTLPolicy, clock time2.Clock) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, clock: clock}
}

func sessionKey(id string) string   { return sessionKeyPrefix + id }
func userIndexKey(id string) string { return userIndexKeyPrefix + id }
func lockKey(id string) string      { return lockKeyPrefix + id }

// Ping probes backend health. Used by the router's explicit re-enable path.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis ping")
	}
	return nil
}

func (s *RedisStore) Save(ctx context.Context, sess *session.Session) error {
	sess.Touch(s.clock.Now())

	data, err := session.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	ttl := s.ttl.ForSession(sess)
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to save session")
	}

	score := float64(sess.UpdatedAt.UnixNano()) / float64(time.Second)
	for _, identity := range sess.Participants() {
		member := redis.Z{Score: score, Member: sess.ID}
		if err := s.client.ZAdd(ctx, userIndexKey(identity), member).Err(); err != nil {
			return errors.Wrap(err, "failed to update user index")
		}
	}

	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*session.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get session")
	}

	sess, err := session.Unmarshal(data)
	if err != nil {
		// A record that fails to parse is treated as missing rather than
		// crashing the reader; the write path only produces well-formed
		// payloads.
		log.Warn().Err(err).Str("session_id", id).Msg("Corrupt session payload, treating as not found")
		return nil, ErrNotFound
	}

	return sess, nil
}

func (s *RedisStore) GetOrCreate(ctx context.Context, id string, creatorID string) (*session.Session, error) {
	sess, err := s.Load(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	sess = session.New(id, creatorID)
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) ListByIdentity(ctx context.Context, identity string) ([]*session.Session, error) {
	if identity == "" {
		return nil, nil
	}

	key := userIndexKey(identity)
	ids, err := s.client.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read user index")
	}

	var sessions []*session.Session
	var stale []interface{}

	for _, id := range ids {
		sess, err := s.Load(ctx, id)
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

	// Self-healing index: drop members that expired or no longer reference
	// the identity.
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, key, stale...).Err(); err != nil {
			log.Warn().Err(err).Str("identity", identity).Msg("Failed to prune stale user index entries")
		}
	}

	return sessions, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	return nil
}

// AcquireLock attempts a single SET NX of the lock key. The lock and data
// keys are distinct so a crashed holder leaves the lock to expire without
// touching the record.
func (s *RedisStore) AcquireLock(ctx context.Context, id string, token string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKey(id), token, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to acquire lock")
	}
	return ok, nil
}

// ReleaseLock deletes the lock only while it still stores token, so a slow
// holder cannot delete a lock someone else acquired after TTL expiry.
func (s *RedisStore) ReleaseLock(ctx context.Context, id string, token string) error {
	key := lockKey(id)
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return errors.Wrap(err, "failed to inspect lock")
	}
	if val != token {
		return nil
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "failed to release lock")
	}
	return nil
}

func sessionNamesIdentity(sess *session.Session, identity string) bool {
	if sess.CreatorID == identity {
		return true
	}
	for _, owner := range sess.RoleOwners {
		if owner == identity {
			return true
		}
	}
	return false
}
