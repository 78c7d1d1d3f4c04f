package tokenstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Version int64  `json:"version"`
	Name    string `json:"name"`
}

// runContract exercises the behavior every backend must share.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("put get delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "prompt:1", doc{Name: "a"}, time.Minute))

		var got doc
		ok, err := s.Get(ctx, "prompt:1", &got)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "a", got.Name)

		require.NoError(t, s.Delete(ctx, "prompt:1", "prompt:missing"))
		ok, err = s.Get(ctx, "prompt:1", &got)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("take consumes once", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "action:x", doc{Name: "x"}, time.Minute))

		var got doc
		ok, err := s.Take(ctx, "action:x", &got)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "x", got.Name)

		ok, err = s.Take(ctx, "action:x", &got)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent take has one winner", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "action:race", doc{Name: "r"}, time.Minute))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, err := s.Take(ctx, "action:race", nil); err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, wins.Load())
	})

	t.Run("extend missing key", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.Extend(ctx, "action:none", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Put(ctx, "action:some", doc{}, time.Minute))
		ok, err = s.Extend(ctx, "action:some", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("swap compares version", func(t *testing.T) {
		s := newStore(t)
		require.ErrorIs(t, s.Swap(ctx, "prompt:v", 0, doc{Version: 1}, time.Minute), ErrNotFound)

		require.NoError(t, s.Put(ctx, "prompt:v", doc{Version: 0, Name: "first"}, time.Minute))
		require.NoError(t, s.Swap(ctx, "prompt:v", 0, doc{Version: 1, Name: "second"}, time.Minute))
		require.ErrorIs(t, s.Swap(ctx, "prompt:v", 0, doc{Version: 1, Name: "lost"}, time.Minute), ErrVersionMismatch)

		var got doc
		ok, err := s.Get(ctx, "prompt:v", &got)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, doc{Version: 1, Name: "second"}, got)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, newStore(t).Ping(ctx))
	})
}

func TestMemoryContract(t *testing.T) {
	runContract(t, func(t *testing.T) Store {
		m := NewMemory(0)
		t.Cleanup(func() { _ = m.Close() })
		return m
	})
}
