package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestForEachCollectsPerItemErrors(t *testing.T) {
	boom := errors.New("boom")
	items := []string{"a", "b", "c", "d"}

	var peak, running int32
	errs := ForEach(context.Background(), 2, items, func(ctx context.Context, item string) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		defer atomic.AddInt32(&running, -1)
		if item == "c" {
			return boom
		}
		return nil
	})

	if len(errs) != len(items) {
		t.Fatalf("expected %d slots, got %d", len(items), len(errs))
	}
	for i, err := range errs {
		if items[i] == "c" {
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom for c, got %v", err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", items[i], err)
		}
	}
	if atomic.LoadInt32(&peak) > 2 {
		t.Fatalf("limit exceeded: %d in flight", peak)
	}
}

func TestForEachStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	errs := ForEach(ctx, 1, []int{1, 2, 3}, func(ctx context.Context, item int) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if calls != 0 {
		t.Fatalf("expected no calls, got %d", calls)
	}
	for _, err := range errs {
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}
}
