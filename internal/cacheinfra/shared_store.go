package cacheinfra

import (
	"context"

	"github.com/viccon/sturdyc"
)

// NewSharedClient creates the sturdyc client that every shared store in a
// process reads and writes through.
func NewSharedClient(cfg SharedConfig) (*sturdyc.Client[any], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	), nil
}

// SharedStore keeps the value for one key in a shared sturdyc client.
// Expired or evicted entries read as a miss.
type SharedStore[T any] struct {
	key    string
	client *sturdyc.Client[any]
	opts   storeOptions
}

// NewSharedStore returns a store bound to key.
func NewSharedStore[T any](client *sturdyc.Client[any], key string, opts ...StoreOption) *SharedStore[T] {
	return &SharedStore[T]{
		key:    key,
		client: client,
		opts:   newStoreOptions(opts),
	}
}

// Read returns the cached value when present and of type T.
func (s *SharedStore[T]) Read() (T, bool) {
	var zero T

	raw, ok := s.client.Get(s.key)
	if !ok {
		return zero, false
	}

	value, ok := raw.(T)
	if !ok {
		s.opts.logger.Warn("shared store holds a value of another type", "key", s.key)
		s.opts.metrics.StoreFailure(context.Background(), BackendShared, "read")
		return zero, false
	}
	return value, true
}

// Write stores value under the key.
func (s *SharedStore[T]) Write(value T) {
	s.client.Set(s.key, value)
}

// Clear removes the key from the client.
func (s *SharedStore[T]) Clear() {
	s.client.Delete(s.key)
}
