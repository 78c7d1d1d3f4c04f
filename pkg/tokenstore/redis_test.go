package tokenstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set BOARDCORE_TEST_REDIS_URL (e.g. redis://localhost:6379/15) to run these.
func redisURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("BOARDCORE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("BOARDCORE_TEST_REDIS_URL not set, skipping Redis integration test")
	}
	return url
}

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ns := "boardcore-test-" + uuid.NewString()
	r, err := NewRedis(ctx, redisURL(t), WithNamespace(ns), WithConnectTimeout(5*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() {
		keys, _ := r.client.Keys(context.Background(), ns+":*").Result()
		if len(keys) > 0 {
			_ = r.client.Del(context.Background(), keys...).Err()
		}
		_ = r.Close()
	})
	return r
}

func TestRedisContract(t *testing.T) {
	redisURL(t)
	runContract(t, func(t *testing.T) Store { return newTestRedis(t) })
}

func TestRedisNamespacesKeys(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, "prompt:42", doc{Name: "n"}, time.Minute))

	n, err := r.client.Exists(ctx, r.namespace+":prompt:42").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ttl, err := r.client.PTTL(ctx, r.namespace+":prompt:42").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "://nope")
	require.Error(t, err)
}
