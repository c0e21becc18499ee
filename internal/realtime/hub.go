package realtime

import (
	"context"
	"sync"
)

// Broadcaster delivers a value to every subscriber of key.
type Broadcaster[T any] interface {
	Broadcast(ctx context.Context, key string, value T) error
}

// Hub is an in-process observer registry keyed by string. Callbacks run
// synchronously on the publishing goroutine, outside the hub lock.
type Hub[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func(T)
	gauge  func(delta int)
}

// NewHub constructs an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[string]map[uint64]func(T))}
}

// OnSubscriberChange registers a hook called with +1/-1 as subscriptions come and go.
func (h *Hub[T]) OnSubscriberChange(fn func(delta int)) {
	h.mu.Lock()
	h.gauge = fn
	h.mu.Unlock()
}

// Subscribe registers fn for key and returns an idempotent unsubscribe func.
func (h *Hub[T]) Subscribe(key string, fn func(T)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[key] == nil {
		h.subs[key] = make(map[uint64]func(T))
	}
	h.subs[key][id] = fn
	gauge := h.gauge
	h.mu.Unlock()

	if gauge != nil {
		gauge(1)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			gauge := h.gauge
			h.mu.Unlock()
			if gauge != nil {
				gauge(-1)
			}
		})
	}
}

// Publish invokes every callback registered for key.
func (h *Hub[T]) Publish(key string, value T) {
	h.mu.RLock()
	callbacks := make([]func(T), 0, len(h.subs[key]))
	for _, fn := range h.subs[key] {
		callbacks = append(callbacks, fn)
	}
	h.mu.RUnlock()

	for _, fn := range callbacks {
		fn(value)
	}
}

// Broadcast satisfies Broadcaster for single-instance deployments.
func (h *Hub[T]) Broadcast(_ context.Context, key string, value T) error {
	h.Publish(key, value)
	return nil
}

// Subscribers returns the number of active callbacks for key.
func (h *Hub[T]) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}

// Channel pairs a broadcaster with the hub its deliveries land in, so callers
// can publish and subscribe through one value whether or not a bridge is used.
type Channel[T any] struct {
	broadcaster Broadcaster[T]
	hub         *Hub[T]
}

// NewChannel returns a Channel. A nil broadcaster publishes straight to hub.
func NewChannel[T any](broadcaster Broadcaster[T], hub *Hub[T]) *Channel[T] {
	if broadcaster == nil {
		broadcaster = hub
	}
	return &Channel[T]{broadcaster: broadcaster, hub: hub}
}

func (c *Channel[T]) Broadcast(ctx context.Context, key string, value T) error {
	return c.broadcaster.Broadcast(ctx, key, value)
}

func (c *Channel[T]) Subscribe(key string, fn func(T)) func() {
	return c.hub.Subscribe(key, fn)
}
