package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/go-contract-session/internal/session"
)

// Integration tests against a live Redis. Set SESSION_TEST_REDIS_URL to run,
// e.g. redis://localhost:6379/15. The selected database is flushed.
func newIntegrationRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	url := os.Getenv("SESSION_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SESSION_TEST_REDIS_URL not set, skipping Redis integration test")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, session.DefaultTTLPolicy(), time2.DefaultClock)
}

func TestRedisStoreSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store := newIntegrationRedisStore(t)

	sess := session.New("it-1", "alice")
	sess.CategoryID = "rent"
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx, "it-1")
	require.NoError(t, err)
	assert.Equal(t, "rent", got.CategoryID)

	sessions, err := store.ListByIdentity(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.NoError(t, store.Delete(ctx, "it-1"))
	_, err = store.Load(ctx, "it-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreLock(t *testing.T) {
	ctx := context.Background()
	store := newIntegrationRedisStore(t)

	ok, err := store.AcquireLock(ctx, "it-1", "token-a", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireLock(ctx, "it-1", "token-b", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "held lock cannot be re-acquired")

	// Releasing with the wrong token is a no-op.
	require.NoError(t, store.ReleaseLock(ctx, "it-1", "token-b"))
	ok, err = store.AcquireLock(ctx, "it-1", "token-c", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.ReleaseLock(ctx, "it-1", "token-a"))
	ok, err = store.AcquireLock(ctx, "it-1", "token-c", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStoreCorruptPayloadReadsAsMissing(t *testing.T) {
	ctx := context.Background()
	store := newIntegrationRedisStore(t)

	require.NoError(t, store.client.Set(ctx, "session:corrupt", "{not json", time.Minute).Err())

	_, err := store.Load(ctx, "corrupt")
	assert.ErrorIs(t, err, ErrNotFound)
}
