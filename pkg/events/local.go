package events

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultSubscriptionBuffer is the channel capacity of a LocalBus subscription.
const DefaultSubscriptionBuffer = 256

// LocalBus is an in-process Publisher with prefix subscriptions. Slow
// subscribers lose events rather than stall the publisher.
type LocalBus struct {
	subscribers map[*Subscription]struct{}
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
	dropped     atomic.Uint64
}

// Subscription represents a prefix subscription on a LocalBus
type Subscription struct {
	prefix    string
	channel   chan Event
	bus       *LocalBus
	cancel    context.CancelFunc
	closeOnce sync.Once // Ensures channel is only closed once
}

// NewLocalBus creates an empty bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{
		subscribers: make(map[*Subscription]struct{}),
		shutdown:    make(chan struct{}),
	}
}

// Subscribe receives every event whose topic starts with prefix until ctx is
// cancelled or the bus is closed.
func (b *LocalBus) Subscribe(ctx context.Context, prefix string) (*Subscription, error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil, ErrClosed
	}
	b.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		prefix:  prefix,
		channel: make(chan Event, DefaultSubscriptionBuffer),
		bus:     b,
		cancel:  cancel,
	}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish delivers an event to every matching subscriber.
// Uses a snapshot copy to avoid holding the lock during channel sends.
func (b *LocalBus) Publish(topic string, payload []byte) error {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return ErrClosed
	}
	b.shutdownMu.Unlock()

	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subscribers))
	for sub := range b.subscribers {
		if strings.HasPrefix(topic, sub.prefix) {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	ev := Event{Topic: topic, Payload: bytes.Clone(payload)}
	for _, sub := range subs {
		select {
		case sub.channel <- ev:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// SubscriberCount returns the number of live subscriptions.
func (b *LocalBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns the number of events discarded because a subscriber was full.
func (b *LocalBus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriptions and shuts down the bus.
func (b *LocalBus) Close() error {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	b.mu.Lock()
	for sub := range b.subscribers {
		sub.close()
		delete(b.subscribers, sub)
	}
	b.mu.Unlock()
	return nil
}

// Events returns the subscription's event channel. It is closed on
// Unsubscribe or when the bus closes.
func (s *Subscription) Events() <-chan Event {
	return s.channel
}

// Unsubscribe removes the subscription
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.bus.mu.Lock()
	delete(s.bus.subscribers, s)
	s.bus.mu.Unlock()

	s.close()
}

// close closes the subscription channel safely (idempotent)
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
