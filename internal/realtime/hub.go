package realtime

import (
	"context"
	"encoding/json"
	"sync"
)

// ChangeEvent is a row-level change pushed to subscribed clients.
type ChangeEvent struct {
	Table     string          `json:"table"`
	Operation string          `json:"operation"`
	NewRow    json.RawMessage `json:"newRow"`
}

// Subscription is a live registration for one identity's change events.
// It must be released with Close when the consuming context ends; an
// abandoned subscription keeps a server-side registration alive indefinitely.
type Subscription struct {
	events  chan ChangeEvent
	release func()
	once    sync.Once
}

// Events returns the delivery channel. It is closed after Close.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

// Close releases the registration. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.release)
}

// Hub fans row-level change events out to identity-filtered subscribers.
// Delivery is at-most-once: a subscriber disconnected (or too slow) at
// publish time misses the event and is expected to poll on reconnect.
type Hub interface {
	Publish(ctx context.Context, identity string, event ChangeEvent) error
	Subscribe(ctx context.Context, identity string) (*Subscription, error)
}

// subscriberBuffer bounds per-subscription queueing before events are dropped.
const subscriberBuffer = 16

// memoryHub is the in-process fallback used when Redis is not configured.
type memoryHub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewMemoryHub creates an in-process hub.
func NewMemoryHub() Hub {
	return &memoryHub{subs: make(map[string]map[*Subscription]struct{})}
}

func (h *memoryHub) Publish(_ context.Context, identity string, event ChangeEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[identity] {
		select {
		case sub.events <- event:
		default:
		}
	}
	return nil
}

func (h *memoryHub) Subscribe(_ context.Context, identity string) (*Subscription, error) {
	sub := &Subscription{events: make(chan ChangeEvent, subscriberBuffer)}
	sub.release = func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[identity]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, identity)
			}
		}
		close(sub.events)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[identity] == nil {
		h.subs[identity] = make(map[*Subscription]struct{})
	}
	h.subs[identity][sub] = struct{}{}
	return sub, nil
}
