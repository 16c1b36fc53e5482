package protocol

import (
	"context"
	"errors"
	"sync"
)

// ErrSinkClosed is returned by Take once the sink is closed and drained.
var ErrSinkClosed = errors.New("homeworks: event sink closed")

// Publisher receives decoded events. Sink implements it.
type Publisher interface {
	Put(ev Event)
}

// Sink is an unbounded FIFO queue of events.
// Put never blocks and is safe from any goroutine; Take is meant for a
// single consumer. Events come out in the order they were put.
type Sink struct {
	mu     sync.Mutex
	items  []Event
	closed bool

	// notify holds at most one pending wakeup for the consumer
	notify chan struct{}
	done   chan struct{}
}

var _ Publisher = (*Sink)(nil)

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Put appends ev. Events put after Close are dropped.
func (s *Sink) Put(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.items = append(s.items, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// TryTake removes the oldest event without waiting.
func (s *Sink) TryTake() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return Event{}, false
	}

	ev := s.items[0]
	s.items[0] = Event{}
	s.items = s.items[1:]
	if len(s.items) == 0 {
		s.items = nil
	}
	return ev, true
}

// Take removes the oldest event, waiting until one is available, ctx is done
// or the sink is closed. Events queued before Close are still delivered.
func (s *Sink) Take(ctx context.Context) (Event, error) {
	for {
		if ev, ok := s.TryTake(); ok {
			return ev, nil
		}

		select {
		case <-s.notify:
		case <-s.done:
			if ev, ok := s.TryTake(); ok {
				return ev, nil
			}
			return Event{}, ErrSinkClosed
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Len returns the number of queued events.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close stops accepting events and wakes a waiting consumer.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
