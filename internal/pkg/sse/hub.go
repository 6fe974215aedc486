package sse

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/notification"
)

// Event is one server-sent event addressed to a recipient key.
type Event struct {
	Recipient string
	Name      string
	Data      interface{}
}

// Payload is the JSON body streamed for a notification event.
type Payload struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt string                 `json:"created_at"`
}

// Hub fans events out to streaming subscribers. A subscriber may listen on
// several recipient keys, e.g. its employee ID and notification.RecipientAdmins.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	keys        map[chan Event][]string
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		keys:        make(map[chan Event][]string),
	}
}

// Subscribe registers one channel under every key and returns it with its
// cleanup function. Cleanup closes the channel.
func (h *Hub) Subscribe(keys ...string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)
	for _, key := range keys {
		if h.subscribers[key] == nil {
			h.subscribers[key] = make(map[chan Event]struct{})
		}
		h.subscribers[key][ch] = struct{}{}
	}
	h.keys[ch] = keys

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.remove(ch)
	}

	return ch, cleanup
}

// remove must be called with mu held. Removing twice is a no-op.
func (h *Hub) remove(ch chan Event) {
	keys, ok := h.keys[ch]
	if !ok {
		return
	}
	for _, key := range keys {
		delete(h.subscribers[key], ch)
		if len(h.subscribers[key]) == 0 {
			delete(h.subscribers, key)
		}
	}
	delete(h.keys, ch)
	close(ch)
}

// Close ends every open subscription so streaming handlers can return.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.keys {
		h.remove(ch)
	}
}

// Publish never blocks: a subscriber with a full buffer misses the event.
func (h *Hub) Publish(key string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event.Recipient = key
	for ch := range h.subscribers[key] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Send implements notification.Sender.
func (h *Hub) Send(ctx context.Context, n notification.Notification) error {
	h.Publish(n.RecipientID, Event{
		Name: string(n.Type),
		Data: Payload{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Data:      n.Data,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		},
	})
	return nil
}

func (h *Hub) SubscriberCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[key])
}
