package report

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// invalidateChannel carries cache-change events between instances
const invalidateChannel = "reports:invalidate"

// Subscription is one live view over the cache. Snapshots arrive on C;
// the first snapshot is delivered before Subscribe returns. Closing a
// subscription stops delivery for that subscriber only.
type Subscription struct {
	// C emits a fresh result set whenever matching rows change
	C <-chan []*Report

	filter Filter
	ch     chan []*Report
	hub    *Hub
	done   chan struct{}
	once   sync.Once
}

// Close cancels the subscription and releases its resources, including
// the watchdog goroutine. Other subscribers are unaffected.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
		close(s.done)
	})
}

// Hub fans cache-change events out to per-filter subscribers. Changes made
// by other instances arrive through Redis pub/sub; without Redis the hub
// still serves all in-process subscribers.
type Hub struct {
	cache Cache

	redis  *redis.Client
	pubsub *redis.PubSub

	mu   sync.RWMutex
	subs map[*Subscription]struct{}

	ctx    context.Context
	cancel context.CancelFunc

	instanceID string
}

// NewHub creates a subscription hub over the given cache
func NewHub(cache Cache, redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		cache:      cache,
		redis:      redisClient,
		subs:       make(map[*Subscription]struct{}),
		ctx:        ctx,
		cancel:     cancel,
		instanceID: uuid.NewString(),
	}

	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, invalidateChannel)
	}

	return h
}

// Run consumes cross-instance invalidations (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub == nil {
		return
	}

	ch := h.pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payload is the sender's instance id; skip our own events,
			// they were already applied locally in Invalidate
			if msg.Payload == h.instanceID {
				continue
			}
			h.refreshAll()
		}
	}
}

// Subscribe registers a new subscriber for the filter and delivers the
// current snapshot immediately. The subscription closes itself when ctx
// is cancelled; callers may also Close it directly.
func (h *Hub) Subscribe(ctx context.Context, f Filter) (*Subscription, error) {
	ch := make(chan []*Report, 8)
	sub := &Subscription{
		C:      ch,
		filter: f,
		ch:     ch,
		hub:    h,
		done:   make(chan struct{}),
	}

	// Register before the snapshot query, holding the write lock across
	// it. refreshAll needs the read lock, so a concurrent write is either
	// already in the initial snapshot or delivered right after it; no
	// window exists where a change can be missed.
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	snapshot, err := h.cache.List(ctx, f)
	if err != nil {
		delete(h.subs, sub)
		h.mu.Unlock()
		return nil, err
	}
	// First send into a fresh buffered channel, cannot block
	ch <- snapshot
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-h.ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Invalidate signals that cached rows changed. Local subscribers are
// refreshed synchronously; other instances are notified through Redis.
func (h *Hub) Invalidate(ctx context.Context) {
	h.refreshAll()

	if h.redis != nil {
		if err := h.redis.Publish(ctx, invalidateChannel, h.instanceID).Err(); err != nil {
			log.Error().Err(err).Msg("Redis publish failed, remote subscribers will miss this update")
		}
	}
}

// refreshAll re-runs every subscriber's filter and pushes fresh snapshots.
// Sends happen under the read lock: Close takes the write lock before
// closing the channel, so a send can never hit a closed channel.
func (h *Hub) refreshAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		snapshot, err := h.cache.List(h.ctx, sub.filter)
		if err != nil {
			log.Error().Err(err).Msg("Failed to refresh subscription snapshot")
			continue
		}

		select {
		case sub.ch <- snapshot:
		default:
			// Slow consumer, drop this snapshot; the next invalidation
			// will carry the current state anyway
			log.Warn().Msg("Subscription buffer full, snapshot dropped")
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// SubscriberCount returns the number of active subscriptions
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Shutdown stops the hub and closes all subscriptions
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}

	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
