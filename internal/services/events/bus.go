// Package events delivers match and no-match notifications to consumers.
//
// Subscriptions are typed channels keyed by request id, plus a global feed
// for consumers like the ledger that want everything. Publishing never
// blocks: events to a full subscriber buffer are dropped and counted.
package events

import (
	"sync"

	"fxmatch/internal/models"
)

// DefaultBuffer is the channel depth of a new subscription.
const DefaultBuffer = 16

// DropCounter records events discarded because a subscriber fell behind.
type DropCounter interface {
	RecordDroppedEvent()
}

// Subscription is one consumer's event feed. Close it when done; the
// channel is closed by the bus on Close or bus shutdown.
type Subscription struct {
	C <-chan models.Event

	bus       *Bus
	requestID string
	ch        chan models.Event
	once      sync.Once
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.detach(s)
		close(s.ch)
	})
}

// Bus is an in-process pub/sub for engine events. Events published for
// the same request id are delivered to each subscriber in publish order.
type Bus struct {
	mu        sync.RWMutex
	byRequest map[string][]*Subscription
	global    []*Subscription
	buffer    int
	drops     DropCounter
	closed    bool
}

// NewBus creates a bus with the given subscriber buffer size. A non-nil
// drops counter is notified when a slow subscriber misses an event.
func NewBus(buffer int, drops DropCounter) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		byRequest: make(map[string][]*Subscription),
		buffer:    buffer,
		drops:     drops,
	}
}

// Subscribe returns a feed of events for one request id.
func (b *Bus) Subscribe(requestID string) *Subscription {
	sub := b.newSubscription(requestID)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.byRequest[requestID] = append(b.byRequest[requestID], sub)
	return sub
}

// SubscribeAll returns a feed of every event the bus publishes.
func (b *Bus) SubscribeAll() *Subscription {
	sub := b.newSubscription("")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.global = append(b.global, sub)
	return sub
}

func (b *Bus) newSubscription(requestID string) *Subscription {
	ch := make(chan models.Event, b.buffer)
	return &Subscription{C: ch, bus: b, requestID: requestID, ch: ch}
}

// Publish delivers the event to subscribers of its request id, of the
// extra request ids (the counterparty side of a match), and of the global
// feed. It never blocks.
func (b *Bus) Publish(ev models.Event, extraRequestIDs ...string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	seen := map[*Subscription]bool{}
	deliver := func(subs []*Subscription) {
		for _, sub := range subs {
			if seen[sub] {
				continue
			}
			seen[sub] = true
			select {
			case sub.ch <- ev:
			default:
				if b.drops != nil {
					b.drops.RecordDroppedEvent()
				}
			}
		}
	}

	deliver(b.byRequest[ev.EventRequestID()])
	for _, id := range extraRequestIDs {
		deliver(b.byRequest[id])
	}
	deliver(b.global)
}

func (b *Bus) detach(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.requestID != "" {
		b.byRequest[sub.requestID] = without(b.byRequest[sub.requestID], sub)
		if len(b.byRequest[sub.requestID]) == 0 {
			delete(b.byRequest, sub.requestID)
		}
		return
	}
	b.global = without(b.global, sub)
}

func without(subs []*Subscription, target *Subscription) []*Subscription {
	for i, s := range subs {
		if s == target {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.byRequest {
		for _, s := range subs {
			s.once.Do(func() { close(s.ch) })
		}
	}
	for _, s := range b.global {
		s.once.Do(func() { close(s.ch) })
	}
	b.byRequest = map[string][]*Subscription{}
	b.global = nil
}
