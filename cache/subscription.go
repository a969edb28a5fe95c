package cache

import (
	"sync"
	"sync/atomic"
)

type eventKind int

const (
	eventNext eventKind = iota
	eventError
	eventComplete
)

type event[T any] struct {
	kind  eventKind
	value T
	err   error
}

// subscription serializes delivery to one observer. At most one goroutine
// runs callbacks for it at a time; events that arrive meanwhile are queued
// and delivered by that goroutine in arrival order.
type subscription[T any] struct {
	subject   *Subject[T]
	observer  Observer[T]
	cancelled atomic.Bool

	mu       sync.Mutex
	emitting bool
	queue    []event[T]
}

// Cancel removes the observer from its subject and drops its queued events.
// Once Cancel returns no further event is dispatched to the observer, except
// that a callback another goroutine is already starting may still run.
func (s *subscription[T]) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()

	if s.subject != nil {
		s.subject.remove(s)
	}
}

func (s *subscription[T]) Cancelled() bool {
	return s.cancelled.Load()
}

// enqueue appends e and reports whether the caller must drain the queue.
func (s *subscription[T]) enqueue(e event[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, e)
	if s.emitting {
		return false
	}
	s.emitting = true
	return true
}

// drain delivers first, if any, then the queue until it is empty. The caller
// must own emission.
func (s *subscription[T]) drain(first *event[T]) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.emitting = false
			s.mu.Unlock()
			panic(r)
		}
	}()

	if first != nil {
		s.dispatch(*first)
	}

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.emitting = false
			s.mu.Unlock()
			return
		}
		e := s.queue[0]
		s.queue[0] = event[T]{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.dispatch(e)
	}
}

func (s *subscription[T]) dispatch(e event[T]) {
	if s.cancelled.Load() {
		return
	}

	switch e.kind {
	case eventNext:
		s.observer.OnNext(e.value)
	case eventError:
		s.observer.OnError(e.err)
	case eventComplete:
		s.observer.OnComplete()
	}
}
