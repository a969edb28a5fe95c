package cache

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Observer receives the events a Subject emits.
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnComplete()
}

// Sink is the producer side of a Subject.
type Sink[T any] interface {
	Push(value T)
	Clear()
	PushError(err error)
	PushCompleted()
}

// Source is the consumer side of a Subject.
type Source[T any] interface {
	Subscribe(observer Observer[T]) Subscription
}

// Subscription is the handle returned by Subscribe. Cancel is idempotent and
// safe to call from any goroutine, including from inside a callback.
type Subscription interface {
	Cancel()
	Cancelled() bool
}

var (
	_ Sink[any]   = (*Subject[any])(nil)
	_ Source[any] = (*Subject[any])(nil)
)

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs[T any] struct {
	Next     func(value T)
	Error    func(err error)
	Complete func()
}

func (o ObserverFuncs[T]) OnNext(value T) {
	if o.Next != nil {
		o.Next(value)
	}
}

func (o ObserverFuncs[T]) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

func (o ObserverFuncs[T]) OnComplete() {
	if o.Complete != nil {
		o.Complete()
	}
}

// SubjectOption configures a Subject.
type SubjectOption func(*subjectOptions)

type subjectOptions struct {
	name    string
	logger  *slog.Logger
	metrics *Metrics
}

// WithName labels the subject in log records.
func WithName(name string) SubjectOption {
	return func(o *subjectOptions) {
		o.name = name
	}
}

// WithSubjectLogger sets the logger that receives subscription events.
func WithSubjectLogger(logger *slog.Logger) SubjectOption {
	return func(o *subjectOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSubjectMetrics sets the instruments that count deliveries.
func WithSubjectMetrics(metrics *Metrics) SubjectOption {
	return func(o *subjectOptions) {
		o.metrics = metrics
	}
}

// Subject is a hot multicast channel backed by a Store.
//
// New observers first receive the value held by the store, if any, and then
// every event pushed after they subscribed. Every pushed value is written
// through to the store, which is the only place the latest value lives.
//
// Completion and errors do not end the subject: later pushes are still
// delivered and later subscribers still receive the stored value, but not
// the terminal signal.
type Subject[T any] struct {
	store Store[T]
	opts  subjectOptions

	mu   sync.Mutex
	subs []*subscription[T]
}

// NewSubject returns a Subject persisting through store. The store is not
// owned by the subject.
func NewSubject[T any](store Store[T], opts ...SubjectOption) (*Subject[T], error) {
	if store == nil {
		return nil, ErrNilStore
	}

	o := subjectOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name != "" {
		o.logger = o.logger.With(slog.String("subject", o.name))
	}

	return &Subject[T]{store: store, opts: o}, nil
}

// Subscribe registers observer. When the store holds a value it is delivered
// before Subscribe returns and before any value pushed afterwards.
func (s *Subject[T]) Subscribe(observer Observer[T]) Subscription {
	if observer == nil {
		sub := &subscription[T]{}
		sub.cancelled.Store(true)
		return sub
	}

	// Pushes racing with the replay queue up behind it.
	sub := &subscription[T]{subject: s, observer: observer, emitting: true}

	s.mu.Lock()
	value, ok := s.store.Read()
	s.subs = append(s.subs, sub)
	count := len(s.subs)
	s.mu.Unlock()

	s.opts.logger.Debug("observer subscribed", "replay", ok, "subscribers", count)

	// An observer that panics while subscribing never gets its handle, so
	// it is unregistered here.
	defer func() {
		if r := recover(); r != nil {
			sub.Cancel()
			panic(r)
		}
	}()

	if ok {
		s.opts.metrics.Delivered(context.Background(), "replay", 1)
		sub.drain(&event[T]{kind: eventNext, value: value})
	} else {
		sub.drain(nil)
	}
	return sub
}

// Push writes value to the store and delivers it to every registered
// observer. A nil value of a pointer, interface, channel or function type is
// treated as absent: the store is cleared and nothing is delivered.
func (s *Subject[T]) Push(value T) {
	if isNil(value) {
		s.Clear()
		return
	}

	s.mu.Lock()
	s.store.Write(value)
	owned, n := s.enqueueLocked(event[T]{kind: eventNext, value: value})
	s.mu.Unlock()

	s.opts.metrics.Delivered(context.Background(), "next", n)
	s.deliver(owned)
}

// Clear empties the store without notifying observers.
func (s *Subject[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
}

// PushError delivers err to the registered observers. Nothing is persisted.
func (s *Subject[T]) PushError(err error) {
	s.terminal(event[T]{kind: eventError, err: err}, "error")
}

// PushCompleted delivers completion to the registered observers. Nothing is persisted.
func (s *Subject[T]) PushCompleted() {
	s.terminal(event[T]{kind: eventComplete}, "complete")
}

// HasActiveSubscribers reports whether any observer is registered right now.
func (s *Subject[T]) HasActiveSubscribers() bool {
	return s.SubscriberCount() > 0
}

// SubscriberCount returns the number of registered observers.
func (s *Subject[T]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Subject[T]) terminal(e event[T], kind string) {
	s.mu.Lock()
	owned, n := s.enqueueLocked(e)
	s.mu.Unlock()

	s.opts.logger.Debug("terminal signal", "kind", kind, "subscribers", n)
	s.opts.metrics.Delivered(context.Background(), kind, n)
	s.deliver(owned)
}

// deliver drains every owned subscription. Each one is in emitting mode until
// drained, so when an observer panics the rest are drained before the panic
// propagates.
func (s *Subject[T]) deliver(owned []*subscription[T]) {
	next := 0
	defer func() {
		if next < len(owned) {
			r := recover()
			s.deliver(owned[next:])
			panic(r)
		}
	}()

	for next < len(owned) {
		sub := owned[next]
		next++
		sub.drain(nil)
	}
}

// enqueueLocked queues e on every live subscription and returns the ones
// whose delivery this caller now owns. Callbacks run after s.mu is released,
// so they may subscribe, cancel or push without deadlocking.
func (s *Subject[T]) enqueueLocked(e event[T]) ([]*subscription[T], int) {
	var owned []*subscription[T]
	n := 0
	for _, sub := range s.subs {
		if sub.cancelled.Load() {
			continue
		}
		n++
		if sub.enqueue(e) {
			owned = append(owned, sub)
		}
	}
	return owned, n
}

func (s *Subject[T]) remove(sub *subscription[T]) {
	s.mu.Lock()
	s.subs = slices.DeleteFunc(s.subs, func(other *subscription[T]) bool {
		return other == sub
	})
	count := len(s.subs)
	s.mu.Unlock()

	s.opts.logger.Debug("observer cancelled", "subscribers", count)
}
