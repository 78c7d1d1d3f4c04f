package tokenstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Memory is an in-process Store. It is used when no Redis URL is configured and in tests.
// Expired entries are removed lazily on access and by a periodic sweep.
type Memory struct {
	mu   sync.Mutex
	data map[string]*memoryEntry
	now  func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	closed   atomic.Bool
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates a Memory store. cleanupInterval <= 0 disables the background sweep.
func NewMemory(cleanupInterval time.Duration) *Memory {
	m := &Memory{
		data:   make(map[string]*memoryEntry),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go m.cleanupLoop(cleanupInterval)
	}
	return m
}

func (m *Memory) checkOpen(op string) error {
	if m.closed.Load() {
		return unavailable(op, errClosed)
	}
	return nil
}

// lookupLocked returns a live entry, deleting it if expired.
func (m *Memory) lookupLocked(key string) (*memoryEntry, bool) {
	e, ok := m.data[key]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.data, key)
		return nil, false
	}
	return e, true
}

func (m *Memory) Put(_ context.Context, key string, value any, ttl time.Duration) error {
	if err := m.checkOpen("put"); err != nil {
		return err
	}
	b, err := encode(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = &memoryEntry{value: b, expiresAt: m.now().Add(normalizeTTL(ttl))}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	if err := m.checkOpen("get"); err != nil {
		return false, err
	}
	m.mu.Lock()
	e, ok := m.lookupLocked(key)
	var b []byte
	if ok {
		b = e.value
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, decode(b, dst)
}

func (m *Memory) Take(_ context.Context, key string, dst any) (bool, error) {
	if err := m.checkOpen("take"); err != nil {
		return false, err
	}
	m.mu.Lock()
	e, ok := m.lookupLocked(key)
	if ok {
		delete(m.data, key)
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, decode(e.value, dst)
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	if err := m.checkOpen("delete"); err != nil {
		return err
	}
	m.mu.Lock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Extend(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if err := m.checkOpen("extend"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookupLocked(key)
	if !ok {
		return false, nil
	}
	e.expiresAt = m.now().Add(normalizeTTL(ttl))
	return true, nil
}

func (m *Memory) Swap(_ context.Context, key string, expected int64, value any, ttl time.Duration) error {
	if err := m.checkOpen("swap"); err != nil {
		return err
	}
	b, err := encode(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookupLocked(key)
	if !ok {
		return ErrNotFound
	}
	var cur versioned
	_ = decode(e.value, &cur)
	if cur.Version != expected {
		return ErrVersionMismatch
	}
	m.data[key] = &memoryEntry{value: b, expiresAt: m.now().Add(normalizeTTL(ttl))}
	return nil
}

func (m *Memory) Ping(context.Context) error {
	return m.checkOpen("ping")
}

// TTL returns the remaining lifetime of key.
func (m *Memory) TTL(key string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookupLocked(key)
	if !ok {
		return 0, false
	}
	return e.expiresAt.Sub(m.now()), true
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupExpiredLocked()
	return len(m.data)
}

// Close stops the sweep goroutine. Later calls fail with ErrUnavailable.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() {
		m.closed.Store(true)
		close(m.stopCh)
	})
	return nil
}

func (m *Memory) cleanupLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			m.mu.Lock()
			m.cleanupExpiredLocked()
			m.mu.Unlock()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) cleanupExpiredLocked() {
	now := m.now()
	for k, e := range m.data {
		if !now.Before(e.expiresAt) {
			delete(m.data, k)
		}
	}
}
