// Package stream carries real-time events from upstream sources to the loader.
package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

var (
	// ErrClosed is returned by Recv once the broadcaster is closed and the buffer is drained.
	ErrClosed = errors.New("stream closed")
	// ErrLagged matches every *LaggedError.
	ErrLagged = errors.New("stream receiver lagged")
)

// LaggedError reports how many events a slow subscriber lost since its last Recv.
type LaggedError struct {
	Skipped int64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("stream receiver lagged: %d events skipped", e.Skipped)
}

func (e *LaggedError) Is(target error) bool { return target == ErrLagged }

// Broadcaster fans every published event out to all subscribers.
// Publish never blocks: a subscriber whose buffer is full loses the event.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

type Subscription struct {
	b       *Broadcaster
	ch      chan Event
	dropped atomic.Int64
}

// Subscribe registers a receiver with room for buffer pending events.
// Subscribing to a closed broadcaster yields a subscription that is already closed.
func (b *Broadcaster) Subscribe(buffer int) *Subscription {
	s := &Subscription{b: b, ch: make(chan Event, max(buffer, 1))}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish returns how many subscribers accepted the event.
func (b *Broadcaster) Publish(e Event) (delivered int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	for s := range b.subs {
		select {
		case s.ch <- e:
			delivered++
		default:
			s.dropped.Add(1)
		}
	}
	return delivered
}

// Close ends every subscription; pending events stay readable.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
		delete(b.subs, s)
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Recv blocks for the next event. A *LaggedError is returned once after events
// were dropped; the subscription stays usable.
func (s *Subscription) Recv(ctx context.Context) (Event, error) {
	if n := s.dropped.Swap(0); n > 0 {
		return Event{}, &LaggedError{Skipped: n}
	}
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case e, ok := <-s.ch:
		if !ok {
			return Event{}, ErrClosed
		}
		return e, nil
	}
}

// Unsubscribe detaches s; further Recv calls drain the buffer and then return ErrClosed.
func (s *Subscription) Unsubscribe() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if _, ok := s.b.subs[s]; ok {
		delete(s.b.subs, s)
		close(s.ch)
	}
}
