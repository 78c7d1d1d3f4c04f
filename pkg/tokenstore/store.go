// Package tokenstore is the short-lived key/value cache that carries prompt and pending
// action state between stateless interaction callbacks.
//
// Values are JSON documents. Every write carries a TTL; there is no way to store a key
// without one.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/small-frappuccino/boardcore/pkg/metrics"
)

// DefaultTTL is the lifetime of prompt and action state.
const DefaultTTL = 600 * time.Second

var (
	// ErrUnavailable wraps every backend failure (network, timeout, closed store).
	ErrUnavailable = errors.New("token store unavailable")
	// ErrNotFound is returned by Swap when the key is absent or expired.
	ErrNotFound = errors.New("token not found")
	// ErrVersionMismatch is returned by Swap when another writer got there first.
	ErrVersionMismatch = errors.New("token version mismatch")
)

// Store is the contract shared by the memory and Redis backends.
type Store interface {
	// Put stores value under key for ttl, replacing any previous value.
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get decodes the value under key into dst. It reports false when the key is absent.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Take is Get followed by Delete as one atomic step: two concurrent Takes of the same
	// key never both succeed.
	Take(ctx context.Context, key string, dst any) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	// Extend resets the TTL of an existing key. It reports false when the key is absent.
	Extend(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Swap replaces the value only if the stored document's "version" field equals expected.
	Swap(ctx context.Context, key string, expected int64, value any, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// versioned is the part of a document Swap compares.
type versioned struct {
	Version int64 `json:"version"`
}

func encode(value any) ([]byte, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode token value: %w", err)
	}
	return b, nil
}

func decode(b []byte, dst any) error {
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode token value: %w", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	metrics.TokenStoreErrors.WithLabelValues(op).Inc()
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
