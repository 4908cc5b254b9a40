// Package events moves committed order events out of the outbox table and
// fans them out to live dashboard subscribers.
package events

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const defaultSubscriberBuffer = 16

// Broker is an in-process fan-out. Slow subscribers lose events rather than
// stalling the publisher; the stream is a live feed, not a log.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]chan outbox.PayloadEnvelope
	next   uint64
	buffer int
	closed bool
	logg   *logger.Logger
	onDrop func()
}

// NewBroker builds a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int, logg *logger.Logger) *Broker {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Broker{subs: map[uint64]chan outbox.PayloadEnvelope{}, buffer: buffer, logg: logg}
}

// OnDrop registers a callback invoked for every event dropped for a slow
// subscriber.
func (b *Broker) OnDrop(fn func()) {
	b.mu.Lock()
	b.onDrop = fn
	b.mu.Unlock()
}

// Subscribe returns a receive channel and a cancel func. The channel is
// closed by cancel or Close.
func (b *Broker) Subscribe() (<-chan outbox.PayloadEnvelope, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan outbox.PayloadEnvelope, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers env to every subscriber without blocking and returns how
// many received it.
func (b *Broker) Publish(ctx context.Context, env outbox.PayloadEnvelope) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, ch := range b.subs {
		select {
		case ch <- env:
			delivered++
		default:
			if b.onDrop != nil {
				b.onDrop()
			}
			b.logg.Warn(b.logg.WithField(ctx, "event_id", env.EventID), "events.broker.subscriber_lagging")
		}
	}
	return delivered
}

// Subscribers reports the current subscriber count.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close disconnects every subscriber. Later subscriptions get a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
