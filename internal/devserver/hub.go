package devserver

import (
	"log/slog"
	"sync"

	"github.com/smartkitchen/kitchensync/internal/service/models/order"
)

// hub tracks connected SSE clients and fans order updates out to them. An
// emitter that cannot keep up is treated as dead and dropped, the same
// bookkeeping the real backend applies to broken connections.
type hub struct {
	mu   sync.Mutex
	subs map[chan order.Order]struct{}
}

func newHub() *hub {
	return &hub{
		subs: make(map[chan order.Order]struct{}),
	}
}

func (h *hub) subscribe() chan order.Order {
	ch := make(chan order.Order, 16)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	slog.Info("SSE client connected", "active", n)

	return ch
}

func (h *hub) unsubscribe(ch chan order.Order) {
	h.mu.Lock()
	delete(h.subs, ch)
	n := len(h.subs)
	h.mu.Unlock()

	slog.Info("SSE client disconnected", "active", n)
}

func (h *hub) broadcast(ord order.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ord:
		default:
			delete(h.subs, ch)
			close(ch)
			slog.Warn("dropping stalled SSE client", "order_id", ord.ID)
		}
	}
}
