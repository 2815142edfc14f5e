package report

import (
	"context"
	"runtime"
	"testing"
	"time"
)

// gatedCache pauses the first List call between capturing its result and
// returning it, exposing the window between snapshot and registration
type gatedCache struct {
	*memCache
	entered chan struct{}
	release chan struct{}
	gate    bool
}

func (c *gatedCache) List(ctx context.Context, f Filter) ([]*Report, error) {
	if !c.gate {
		return c.memCache.List(ctx, f)
	}
	c.gate = false
	out, err := c.memCache.List(ctx, f)
	close(c.entered)
	<-c.release
	return out, err
}

func recvSnapshot(t *testing.T, sub *Subscription) []*Report {
	t.Helper()
	select {
	case snapshot, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return snapshot
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestHubSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers initial snapshot", func(t *testing.T) {
		cache := newMemCache()
		hub := NewHub(cache, nil)
		defer hub.Shutdown()

		r := pendingReport("Incendio", TypeFire)
		cache.rows[r.ID] = r.Clone()

		sub, err := hub.Subscribe(ctx, Filter{})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		defer sub.Close()

		snapshot := recvSnapshot(t, sub)
		if len(snapshot) != 1 || snapshot[0].ID != r.ID {
			t.Fatalf("initial snapshot = %+v", snapshot)
		}
	})

	t.Run("invalidation pushes fresh filtered snapshots", func(t *testing.T) {
		cache := newMemCache()
		hub := NewHub(cache, nil)
		defer hub.Shutdown()

		pending := StatusPending
		sub, err := hub.Subscribe(ctx, Filter{Status: &pending})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		defer sub.Close()

		if got := recvSnapshot(t, sub); len(got) != 0 {
			t.Fatalf("initial snapshot = %+v, want empty", got)
		}

		matching := pendingReport("Robo", TypeRobbery)
		cache.rows[matching.ID] = matching.Clone()
		other := pendingReport("Aprobado", TypeNoise)
		other.Status = StatusApproved
		cache.rows[other.ID] = other.Clone()

		hub.Invalidate(ctx)

		snapshot := recvSnapshot(t, sub)
		if len(snapshot) != 1 || snapshot[0].ID != matching.ID {
			t.Fatalf("snapshot = %+v, want only the pending report", snapshot)
		}
	})

	t.Run("closing one subscription leaves others working", func(t *testing.T) {
		cache := newMemCache()
		hub := NewHub(cache, nil)
		defer hub.Shutdown()

		first, err := hub.Subscribe(ctx, Filter{})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		second, err := hub.Subscribe(ctx, Filter{})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		recvSnapshot(t, first)
		recvSnapshot(t, second)

		first.Close()
		if hub.SubscriberCount() != 1 {
			t.Errorf("SubscriberCount = %d, want 1", hub.SubscriberCount())
		}

		r := pendingReport("Pelea", TypeFight)
		cache.rows[r.ID] = r.Clone()
		hub.Invalidate(ctx)

		snapshot := recvSnapshot(t, second)
		if len(snapshot) != 1 {
			t.Fatalf("snapshot = %+v", snapshot)
		}

		second.Close()
	})

	t.Run("context cancellation closes the subscription", func(t *testing.T) {
		cache := newMemCache()
		hub := NewHub(cache, nil)
		defer hub.Shutdown()

		subCtx, cancel := context.WithCancel(ctx)
		sub, err := hub.Subscribe(subCtx, Filter{})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		recvSnapshot(t, sub)

		cancel()

		deadline := time.After(time.Second)
		for hub.SubscriberCount() != 0 {
			select {
			case <-deadline:
				t.Fatal("subscription not removed after context cancellation")
			case <-time.After(10 * time.Millisecond):
			}
		}
	})

	t.Run("close releases the watchdog goroutine", func(t *testing.T) {
		cache := newMemCache()
		hub := NewHub(cache, nil)
		defer hub.Shutdown()

		before := runtime.NumGoroutine()

		sub, err := hub.Subscribe(context.Background(), Filter{})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		recvSnapshot(t, sub)
		sub.Close()

		deadline := time.After(time.Second)
		for runtime.NumGoroutine() > before {
			select {
			case <-deadline:
				t.Fatal("watchdog goroutine still running after Close")
			case <-time.After(10 * time.Millisecond):
			}
		}
	})

	t.Run("write during the initial snapshot query is not lost", func(t *testing.T) {
		cache := &gatedCache{
			memCache: newMemCache(),
			entered:  make(chan struct{}),
			release:  make(chan struct{}),
			gate:     true,
		}
		hub := NewHub(cache, nil)
		defer hub.Shutdown()

		type result struct {
			sub *Subscription
			err error
		}
		resCh := make(chan result, 1)
		go func() {
			sub, err := hub.Subscribe(ctx, Filter{})
			resCh <- result{sub, err}
		}()

		// The snapshot is captured; now race a write and its
		// invalidation against the rest of Subscribe
		<-cache.entered
		r := pendingReport("Robo", TypeRobbery)
		if err := cache.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		invalidated := make(chan struct{})
		go func() {
			hub.Invalidate(ctx)
			close(invalidated)
		}()
		close(cache.release)

		res := <-resCh
		if res.err != nil {
			t.Fatalf("Subscribe: %v", res.err)
		}
		defer res.sub.Close()

		if first := recvSnapshot(t, res.sub); len(first) != 0 {
			t.Fatalf("initial snapshot = %+v, want the pre-write state", first)
		}

		<-invalidated
		second := recvSnapshot(t, res.sub)
		if len(second) != 1 || second[0].ID != r.ID {
			t.Fatalf("snapshot = %+v, want the racing write delivered", second)
		}
	})

	t.Run("double close is safe", func(t *testing.T) {
		cache := newMemCache()
		hub := NewHub(cache, nil)
		defer hub.Shutdown()

		sub, err := hub.Subscribe(ctx, Filter{})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		sub.Close()
		sub.Close()
	})
}
