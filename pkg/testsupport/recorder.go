package testsupport

import "sync"

// EventKind tells which callback produced an Event.
type EventKind string

const (
	KindNext     EventKind = "next"
	KindError    EventKind = "error"
	KindComplete EventKind = "complete"
)

// Event is one callback received by a Recorder.
type Event[T any] struct {
	Kind  EventKind
	Value T
	Err   error
}

// Recorder is an observer that remembers every callback in order.
// It is safe for concurrent use.
type Recorder[T any] struct {
	mu     sync.Mutex
	events []Event[T]

	// OnEvent, when set, runs after the event is recorded and outside the lock.
	OnEvent func(Event[T])
}

// NewRecorder returns an empty Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

func (r *Recorder[T]) OnNext(value T) {
	r.record(Event[T]{Kind: KindNext, Value: value})
}

func (r *Recorder[T]) OnError(err error) {
	r.record(Event[T]{Kind: KindError, Err: err})
}

func (r *Recorder[T]) OnComplete() {
	r.record(Event[T]{Kind: KindComplete})
}

func (r *Recorder[T]) record(e Event[T]) {
	r.mu.Lock()
	r.events = append(r.events, e)
	hook := r.OnEvent
	r.mu.Unlock()

	if hook != nil {
		hook(e)
	}
}

// Events returns a copy of everything recorded so far.
func (r *Recorder[T]) Events() []Event[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event[T](nil), r.events...)
}

// Values returns the values received through OnNext, in order.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	var values []T
	for _, e := range r.events {
		if e.Kind == KindNext {
			values = append(values, e.Value)
		}
	}
	return values
}

// Errors returns the errors received through OnError, in order.
func (r *Recorder[T]) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, e := range r.events {
		if e.Kind == KindError {
			errs = append(errs, e.Err)
		}
	}
	return errs
}

// Completions returns how many times OnComplete was called.
func (r *Recorder[T]) Completions() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Kind == KindComplete {
			n++
		}
	}
	return n
}

// Len returns the number of recorded events.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
