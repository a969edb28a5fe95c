package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/puzpuzpuz/xsync/v3"
)

// LoaderFunc computes the value for a key on a cache miss.
type LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// MemoOption configures a Memo.
type MemoOption func(*memoOptions)

type memoOptions struct {
	logger  *slog.Logger
	metrics *Metrics
}

// WithMemoLogger sets the logger that receives load events.
func WithMemoLogger(logger *slog.Logger) MemoOption {
	return func(o *memoOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMemoMetrics sets the instruments that count loads and hits.
func WithMemoMetrics(metrics *Metrics) MemoOption {
	return func(o *memoOptions) {
		o.metrics = metrics
	}
}

// Memo computes a value per key at most once and keeps it for its lifetime.
//
// Concurrent Get calls for the same key share one loader invocation; calls
// for different keys never wait on each other. A failed load leaves the key
// unresolved so the next Get runs the loader again. Entries are never evicted.
type Memo[K comparable, V any] struct {
	resolved *xsync.MapOf[K, V]
	inflight *xsync.MapOf[K, *call[V]]
	opts     memoOptions
}

// call is an in-flight load. val and err are written once before done is closed.
type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// NewMemo returns an empty Memo.
func NewMemo[K comparable, V any](opts ...MemoOption) *Memo[K, V] {
	o := memoOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	return &Memo[K, V]{
		resolved: xsync.NewMapOf[K, V](),
		inflight: xsync.NewMapOf[K, *call[V]](),
		opts:     o,
	}
}

// Get returns the value for key, running loader on the calling goroutine when
// the key has not been resolved yet. Callers that find a load already in
// flight wait for it, or for ctx to be done.
//
// A loader that calls Get for its own key with the ctx it was given fails
// with ErrRecursiveLoad. With an unrelated ctx it would wait on itself until
// that ctx is done.
func (m *Memo[K, V]) Get(ctx context.Context, key K, loader LoaderFunc[K, V]) (V, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if v, ok := m.resolved.Load(key); ok {
		m.opts.metrics.MemoHit(ctx)
		return v, nil
	}

	if loader == nil {
		var zero V
		return zero, ErrNilLoader
	}

	c := &call[V]{done: make(chan struct{})}
	if running, loaded := m.inflight.LoadOrStore(key, c); loaded {
		if loadingFrom(ctx, m, key) {
			var zero V
			return zero, &LoadError{Key: key, Err: ErrRecursiveLoad}
		}
		return m.wait(ctx, running)
	}

	// A previous call may have resolved the key between the lookup and the claim.
	if v, ok := m.resolved.Load(key); ok {
		c.val = v
		m.finish(key, c)
		m.opts.metrics.MemoHit(ctx)
		return v, nil
	}

	m.load(ctx, key, c, loader)
	return c.val, c.err
}

// Peek returns the resolved value for key without loading it.
func (m *Memo[K, V]) Peek(key K) (V, bool) {
	return m.resolved.Load(key)
}

// Len returns the number of resolved keys.
func (m *Memo[K, V]) Len() int {
	return m.resolved.Size()
}

func (m *Memo[K, V]) load(ctx context.Context, key K, c *call[V], loader LoaderFunc[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			c.err = &LoadError{Key: key, Err: fmt.Errorf("loader panic: %v", r)}
			m.finish(key, c)
			panic(r)
		}
	}()

	v, err := loader(withLoadFrame(ctx, m, key), key)
	switch {
	case err != nil:
		c.err = &LoadError{Key: key, Err: err}
	case isNil(v):
		c.err = &LoadError{Key: key, Err: ErrNilValue}
	default:
		c.val = v
		m.resolved.Store(key, v)
	}

	if c.err != nil {
		m.opts.logger.DebugContext(ctx, "memo load failed", slog.Any("key", key), slog.Any("error", c.err))
		m.opts.metrics.MemoLoad(ctx, "error")
	} else {
		m.opts.logger.DebugContext(ctx, "memo load", slog.Any("key", key))
		m.opts.metrics.MemoLoad(ctx, "ok")
	}

	m.finish(key, c)
}

// finish publishes the outcome. The resolved value is stored before the
// in-flight entry is removed so a later claimer always finds it.
func (m *Memo[K, V]) finish(key K, c *call[V]) {
	m.inflight.Delete(key)
	close(c.done)
}

func (m *Memo[K, V]) wait(ctx context.Context, c *call[V]) (V, error) {
	select {
	case <-c.done:
		if c.err == nil {
			m.opts.metrics.MemoHit(ctx)
		}
		return c.val, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

type loadFrameKey struct{}

// loadFrame records a load in progress on the ctx handed to its loader.
type loadFrame struct {
	memo   any
	key    any
	parent *loadFrame
}

func withLoadFrame[K comparable, V any](ctx context.Context, m *Memo[K, V], key K) context.Context {
	parent, _ := ctx.Value(loadFrameKey{}).(*loadFrame)
	return context.WithValue(ctx, loadFrameKey{}, &loadFrame{memo: m, key: key, parent: parent})
}

// loadingFrom reports whether ctx belongs to a loader currently computing key on m.
func loadingFrom[K comparable, V any](ctx context.Context, m *Memo[K, V], key K) bool {
	frame, _ := ctx.Value(loadFrameKey{}).(*loadFrame)
	for ; frame != nil; frame = frame.parent {
		if frame.memo == any(m) && frame.key == any(key) {
			return true
		}
	}
	return false
}
