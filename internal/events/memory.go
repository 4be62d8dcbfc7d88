package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned when using a closed bus.
var ErrClosed = errors.New("event bus closed")

const subscriberBuffer = 64

// MemoryBus delivers events within one process. Each subscription has its
// own goroutine, so a slow handler never delays the publisher or other
// subscribers.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*memorySub
	closed bool
}

type memorySub struct {
	collection Collection
	mask       Op
	ch         chan Event
	done       chan struct{}
}

// NewMemoryBus returns an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[uint64]*memorySub)}
}

// Publish hands e to every matching subscriber. When a subscriber's queue
// is full the event is dropped for that subscriber: it still has an
// undelivered event queued, which triggers the same re-derive.
func (b *MemoryBus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, s := range b.subs {
		if s.collection != e.Collection || s.mask&e.Op == 0 {
			continue
		}
		select {
		case s.ch <- e:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		default:
			slog.Debug("Subscriber busy, coalescing event", "collection", e.Collection, "op", e.Op.String())
		}
	}
	return nil
}

// Subscribe registers h.
func (b *MemoryBus) Subscribe(collection Collection, mask Op, h Handler) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	b.nextID++
	id := b.nextID
	s := &memorySub{
		collection: collection,
		mask:       mask,
		ch:         make(chan Event, subscriberBuffer),
		done:       make(chan struct{}),
	}
	b.subs[id] = s

	go func() {
		for {
			select {
			case e := <-s.ch:
				h(e)
			case <-s.done:
				return
			}
		}
	}()

	return NewSubscription(collection, mask, func() { b.remove(id) }), nil
}

func (b *MemoryBus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[id]; ok {
		close(s.done)
		delete(b.subs, id)
	}
}

// Close unsubscribes everyone.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.done)
		delete(b.subs, id)
	}
	return nil
}

// Len returns the number of active subscriptions.
func (b *MemoryBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
