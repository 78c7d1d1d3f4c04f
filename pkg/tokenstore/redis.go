package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

const defaultNamespace = "boardcore"

var errClosed = errors.New("store is closed")

// swapScript compares the "version" field of the stored JSON document before writing.
// Returns -1 when the key is missing, 0 on mismatch, 1 on success.
var swapScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  return -1
end
local ok, doc = pcall(cjson.decode, cur)
local v = 0
if ok and type(doc) == 'table' and doc['version'] ~= nil then
  v = tonumber(doc['version']) or 0
end
if v ~= tonumber(ARGV[1]) then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithNamespace sets the key prefix. Keys become "<namespace>:<key>".
func WithNamespace(ns string) RedisOption {
	return func(r *Redis) {
		if ns != "" {
			r.namespace = ns
		}
	}
}

// WithConnectTimeout bounds the initial connection attempts.
func WithConnectTimeout(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.connectTimeout = d
		}
	}
}

// Redis is a Store backed by a Redis server, shared by every bot process.
type Redis struct {
	client         redis.UniversalClient
	namespace      string
	connectTimeout time.Duration
}

// NewRedis connects to redisURL (e.g. "redis://localhost:6379/0"). The first ping is retried
// with exponential backoff until the connect timeout elapses.
func NewRedis(ctx context.Context, redisURL string, opts ...RedisOption) (*Redis, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	r := &Redis{
		client:         redis.NewClient(redisOpts),
		namespace:      defaultNamespace,
		connectTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = r.connectTimeout
	ping := func() error {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return r.client.Ping(pctx).Err()
	}
	if err := backoff.Retry(ping, backoff.WithContext(bo, ctx)); err != nil {
		_ = r.client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return r, nil
}

// NewRedisFromClient wraps an existing client without pinging it.
func NewRedisFromClient(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, namespace: defaultNamespace}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(k string) string {
	return r.namespace + ":" + k
}

func (r *Redis) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := encode(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), b, normalizeTTL(ttl)).Err(); err != nil {
		return unavailable("put", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, unavailable("get", err)
	}
	return true, decode(b, dst)
}

func (r *Redis) Take(ctx context.Context, key string, dst any) (bool, error) {
	b, err := r.client.GetDel(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, unavailable("take", err)
	}
	return true, decode(b, dst)
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

func (r *Redis) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.Expire(ctx, r.key(key), normalizeTTL(ttl)).Result()
	if err != nil {
		return false, unavailable("extend", err)
	}
	return ok, nil
}

func (r *Redis) Swap(ctx context.Context, key string, expected int64, value any, ttl time.Duration) error {
	b, err := encode(value)
	if err != nil {
		return err
	}
	res, err := swapScript.Run(ctx, r.client, []string{r.key(key)},
		expected, string(b), normalizeTTL(ttl).Milliseconds()).Int()
	if err != nil {
		return unavailable("swap", err)
	}
	switch res {
	case -1:
		return ErrNotFound
	case 0:
		return ErrVersionMismatch
	default:
		return nil
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
