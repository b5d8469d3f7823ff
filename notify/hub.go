// Package notify fans invocation and sync outcomes out to the
// presentation layer. Every terminal invocation outcome produces exactly
// one notification; the hub owns notification identity and expiry.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
	KindInfo    = "info"
)

// Notification is a single user-facing event.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Hub buffers recent notifications and streams new ones to subscribers.
// Notifications auto-expire after the configured TTL; an explicit Dismiss
// cancels the pending expiry so a recycled slot is never dismissed twice.
type Hub struct {
	ttl   time.Duration
	limit int
	now   func() time.Time

	mu      sync.Mutex
	active  []Notification
	expiry  map[string]*time.Timer
	subs    map[int]chan Notification
	nextSub int
}

// NewHub constructs a hub keeping at most limit active notifications, each
// expiring after ttl. A non-positive ttl disables auto-expiry.
func NewHub(limit int, ttl time.Duration) *Hub {
	if limit < 1 {
		limit = 1
	}
	return &Hub{
		ttl:    ttl,
		limit:  limit,
		now:    time.Now,
		expiry: make(map[string]*time.Timer),
		subs:   make(map[int]chan Notification),
	}
}

// Publish creates a notification and delivers it to all subscribers.
func (h *Hub) Publish(kind, title, message string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: h.now().UTC(),
	}

	h.mu.Lock()
	h.active = append(h.active, n)
	if len(h.active) > h.limit {
		evicted := h.active[0]
		h.active = append([]Notification(nil), h.active[1:]...)
		h.stopExpiryLocked(evicted.ID)
	}
	if h.ttl > 0 {
		id := n.ID
		h.expiry[id] = time.AfterFunc(h.ttl, func() { h.Dismiss(id) })
	}
	for subID, ch := range h.subs {
		select {
		case ch <- n:
		default:
			// Laggard subscriber: close and drop rather than block.
			close(ch)
			delete(h.subs, subID)
		}
	}
	h.mu.Unlock()
	return n
}

// Dismiss removes a notification and cancels its pending expiry. Unknown
// ids are ignored.
func (h *Hub) Dismiss(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopExpiryLocked(id)
	for i, n := range h.active {
		if n.ID == id {
			h.active = append(append([]Notification(nil), h.active[:i]...), h.active[i+1:]...)
			return
		}
	}
}

// Active returns the current notifications, oldest first.
func (h *Hub) Active() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Notification(nil), h.active...)
}

// Subscribe returns a channel of future notifications and a cancel
// function. The channel is closed on cancel or when the subscriber falls
// too far behind.
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	ch := make(chan Notification, 64)
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			close(sub)
			delete(h.subs, id)
		}
	}
	return ch, cancel
}

// Close cancels all pending expiries and closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, timer := range h.expiry {
		timer.Stop()
		delete(h.expiry, id)
	}
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	h.active = nil
}

func (h *Hub) stopExpiryLocked(id string) {
	if timer, ok := h.expiry[id]; ok {
		timer.Stop()
		delete(h.expiry, id)
	}
}
