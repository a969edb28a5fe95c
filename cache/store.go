package cache

import "sync"

// Store holds the single latest value a Subject replays to new observers.
//
// Read reports a miss with false; implementations map a missing, unreadable
// or undecodable value to a miss instead of an error. Write and Clear never
// fail from the caller's point of view: implementations absorb their own
// persistence errors.
type Store[T any] interface {
	Read() (T, bool)
	Write(value T)
	Clear()
}

// MemoryStore keeps the value in process memory.
type MemoryStore[T any] struct {
	mu    sync.RWMutex
	value T
	ok    bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{}
}

// NewMemoryStoreWith returns an in-memory store already holding value.
func NewMemoryStoreWith[T any](value T) *MemoryStore[T] {
	return &MemoryStore[T]{value: value, ok: true}
}

func (s *MemoryStore[T]) Read() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.ok
}

func (s *MemoryStore[T]) Write(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value, s.ok = value, true
}

func (s *MemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.value, s.ok = zero, false
}
