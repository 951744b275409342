package feedsvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/smartkitchen/kitchensync/internal/dal/stream"
	"github.com/smartkitchen/kitchensync/internal/service/models/order"
)

// OrderUpdatedEvent is the event name the backend uses for order pushes.
const OrderUpdatedEvent = "ORDER_UPDATED"

// DefaultRetryDelay is the fixed pause before a reconnect attempt. There is
// no backoff growth and no retry cap.
const DefaultRetryDelay = 3 * time.Second

// State is the transport connection state, exported for optional indicators.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateErroring
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateErroring:
		return "erroring"
	default:
		return "disconnected"
	}
}

// Handler receives one updated order. Handlers run synchronously on the feed
// goroutine and must not call back into the Feed.
type Handler func(order.Order)

// Feed is a shared, reference-counted live order feed. The transport opens
// on the first Subscribe and closes on the last Subscription.Close; every
// subscriber sees every decoded update. Transport errors are retried
// indefinitely after a fixed delay and never surfaced to subscribers.
type Feed struct {
	dialer     stream.Dialer
	eventName  string
	retryDelay time.Duration
	after      func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	subs   map[int64]Handler
	nextID int64
	state  State
	stop   chan struct{}
	done   chan struct{}
}

// option is a function that configures the Feed.
type option func(*Feed)

// MustNewFeed creates a new Feed.
func MustNewFeed(opts ...option) *Feed {
	f := &Feed{
		eventName:  OrderUpdatedEvent,
		retryDelay: DefaultRetryDelay,
		after:      time.After,
		subs:       make(map[int64]Handler),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.dialer == nil {
		panic("feedsvc: dialer is required")
	}

	return f
}

// WithDialer sets the stream dialer for the Feed.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDialer(dialer stream.Dialer) option {
	return func(f *Feed) {
		f.dialer = dialer
	}
}

// WithRetryDelay sets the fixed reconnect delay.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRetryDelay(d time.Duration) option {
	return func(f *Feed) {
		f.retryDelay = d
	}
}

// WithAfter replaces the reconnect timer source. Tests inject a manual clock
// here so reconnect behavior is checkable without real waits.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAfter(after func(time.Duration) <-chan time.Time) option {
	return func(f *Feed) {
		f.after = after
	}
}

// Subscription is one consumer's registration on the feed.
type Subscription struct {
	feed *Feed
	id   int64
	once sync.Once
}

// Close unregisters the subscriber. Closing the last subscription tears the
// transport down, cancelling any pending reconnect; no handler fires after
// Close returns.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.unsubscribe(s.id)
	})
}

// Subscribe registers a handler for every future order update. The first
// subscriber starts the connection loop.
func (f *Feed) Subscribe(h Handler) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	f.subs[id] = h

	if len(f.subs) == 1 {
		f.stop = make(chan struct{})
		f.done = make(chan struct{})
		go f.run(f.stop, f.done)
	}

	return &Subscription{feed: f, id: id}
}

// State returns the current transport state.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

func (f *Feed) unsubscribe(id int64) {
	f.mu.Lock()
	delete(f.subs, id)
	last := len(f.subs) == 0
	stop, done := f.stop, f.done
	f.mu.Unlock()

	if last && stop != nil {
		close(stop)
		<-done
	}
}

func (f *Feed) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// run owns the connection lifecycle: dial, read until error, pause, redial.
// It exits only when stop is closed.
func (f *Feed) run(stop, done chan struct{}) {
	defer close(done)
	defer f.setState(StateDisconnected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	for {
		f.setState(StateConnecting)

		conn, err := f.dialer.Dial(ctx)
		if err != nil {
			f.setState(StateErroring)
			slog.Warn("order feed connect failed, retrying", "delay", f.retryDelay, "error", err)
			select {
			case <-f.after(f.retryDelay):
				continue
			case <-stop:
				return
			}
		}

		f.setState(StateConnected)
		slog.Info("order feed connected")

	recv:
		for {
			select {
			case <-stop:
				_ = conn.Close()

				return
			case ev, ok := <-conn.Events():
				if !ok {
					f.setState(StateErroring)
					_ = conn.Close()
					slog.Warn("order feed disconnected, retrying", "delay", f.retryDelay, "error", conn.Err())
					select {
					case <-f.after(f.retryDelay):
						break recv
					case <-stop:
						return
					}
				}

				f.dispatch(ev)
			}
		}
	}
}

// dispatch decodes one event and fans it out to every subscriber. A payload
// that does not parse is logged and dropped; the connection stays open.
func (f *Feed) dispatch(ev stream.Event) {
	if ev.Name != f.eventName {
		return
	}

	var ord order.Order
	if err := json.Unmarshal([]byte(ev.Data), &ord); err != nil {
		slog.Error("dropping malformed order event", "error", err)

		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.subs {
		h(ord)
	}
}
