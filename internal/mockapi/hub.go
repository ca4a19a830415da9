package mockapi

import (
	"sync"

	"github.com/kantharos-net/LinkedinAutoPost/internal/api"
)

// subscriberBuffer bounds how far a slow client may fall behind before its
// events are dropped.
const subscriberBuffer = 64

// hub fans log events out to every connected stream subscriber.
type hub struct {
	mu   sync.Mutex
	subs map[chan api.LogEvent]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan api.LogEvent]struct{})}
}

// subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe.
func (h *hub) subscribe() (<-chan api.LogEvent, func()) {
	ch := make(chan api.LogEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// broadcast delivers the event to every subscriber, dropping it for any
// subscriber whose buffer is full.
func (h *hub) broadcast(event api.LogEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// subscriberCount reports the number of connected subscribers.
func (h *hub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
