// Package changefeed delivers "something changed" notifications for device and
// reading rows. Sources never carry row data; subscribers are expected to refetch.
package changefeed

import (
	"sync"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
)

// Hub fans out in-process change notifications, used by the embedded backend.
type Hub struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[uint64]func()
}

func NewHub() *Hub {
	return &Hub{handlers: map[uint64]func(){}}
}

// Subscribe registers onChange. Handlers run on the notifying goroutine and must not block.
func (h *Hub) Subscribe(onChange func()) (devicedomain.Subscription, error) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.handlers[id] = onChange
	h.mu.Unlock()

	return newSubscription(func() {
		h.mu.Lock()
		delete(h.handlers, id)
		h.mu.Unlock()
	}), nil
}

// Notify invokes every registered handler once.
func (h *Hub) Notify() {
	h.mu.Lock()
	handlers := make([]func(), 0, len(h.handlers))
	for _, handler := range h.handlers {
		handlers = append(handlers, handler)
	}
	h.mu.Unlock()

	for _, handler := range handlers {
		handler()
	}
}

type subscription struct {
	once    sync.Once
	release func()
}

func newSubscription(release func()) *subscription {
	return &subscription{release: release}
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.release)
}
