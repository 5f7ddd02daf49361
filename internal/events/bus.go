package events

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
)

// DefaultThrottle is the minimum spacing between stateUpdated deliveries
// (one animation frame).
const DefaultThrottle = 16 * time.Millisecond

// Handler receives a published event.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus dispatches events synchronously to every listener registered for the
// event type, in registration order.
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[EventType][]subscription

	throttle *rate.Limiter
	now      func() time.Time
	ledger   *Ledger
	log      *logger.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithClock sets the clock the stateUpdated throttle is evaluated against.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// WithThrottle overrides the stateUpdated spacing. Zero disables throttling.
func WithThrottle(interval time.Duration) Option {
	return func(b *Bus) {
		if interval <= 0 {
			b.throttle = nil
			return
		}
		b.throttle = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithLedger records every non-stateUpdated event in l.
func WithLedger(l *Ledger) Option {
	return func(b *Bus) { b.ledger = l }
}

// NewBus creates an event bus.
func NewBus(log *logger.Logger, opts ...Option) *Bus {
	if log == nil {
		log = logger.NewNop()
	}
	b := &Bus{
		listeners: make(map[EventType][]subscription),
		throttle:  rate.NewLimiter(rate.Every(DefaultThrottle), 1),
		now:       time.Now,
		log:       log.With("bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(t EventType, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[t] = append(b.listeners[t], subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(t, id) })
	}
}

func (b *Bus) remove(t EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.listeners[t]
	for i, s := range subs {
		if s.id == id {
			// Copy so a snapshot taken by a running Publish stays intact.
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			b.listeners[t] = next
			return
		}
	}
}

// On subscribes a handler for one concrete event type.
func On[T Event](b *Bus, fn func(T)) (unsubscribe func()) {
	var zero T
	return b.Subscribe(zero.Type(), func(e Event) {
		if v, ok := e.(T); ok {
			fn(v)
		}
	})
}

// Publish delivers ev to a snapshot of the current listeners. It returns
// false when a stateUpdated was dropped by the throttle.
func (b *Bus) Publish(ev Event) bool {
	if ev == nil {
		return false
	}
	t := ev.Type()
	if t == EventTypeStateUpdated {
		if b.throttle != nil && !b.throttle.AllowN(b.now(), 1) {
			return false
		}
	} else if b.ledger != nil {
		b.ledger.Append(ev)
	}

	b.mu.Lock()
	snapshot := b.listeners[t]
	b.mu.Unlock()

	for _, s := range snapshot {
		payload := ev
		if su, ok := ev.(StateUpdated); ok {
			payload = StateUpdated{State: su.State.Clone()}
		}
		b.deliver(t, s.handler, payload)
	}
	return true
}

func (b *Bus) deliver(t EventType, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error(fmt.Sprintf("listener for %s panicked: %v", t, r))
		}
	}()
	h(ev)
}

// ListenerCount reports how many handlers are registered for t.
func (b *Bus) ListenerCount(t EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[t])
}
