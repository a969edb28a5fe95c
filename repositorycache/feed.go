package repositorycache

import (
	"context"
	"log/slog"
	"reflect"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-cache-subject/cache"
	"github.com/goliatone/go-cache-subject/internal/cacheinfra"
)

// Reader is the part of a go-repository-bun repository a Feed reads from.
type Reader[T any] interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error)
}

var _ Reader[any] = repository.Repository[any](nil)

// SubjectProvider resolves the subject bound to a cache key.
type SubjectProvider[T any] func(ctx context.Context, key string) (*cache.Subject[T], error)

// Option configures a Feed.
type Option func(*feedOptions)

type feedOptions struct {
	namespace     string
	forwardErrors bool
	logger        *slog.Logger
}

// WithNamespace overrides the key namespace derived from the record type.
func WithNamespace(namespace string) Option {
	return func(o *feedOptions) {
		o.namespace = namespace
	}
}

// WithErrorForwarding makes Refresh deliver repository errors to observers
// through PushError in addition to returning them.
func WithErrorForwarding() Option {
	return func(o *feedOptions) {
		o.forwardErrors = true
	}
}

// WithLogger sets the logger for refresh failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *feedOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Feed pushes records read from a repository into one subject per record.
type Feed[T any] struct {
	reader   Reader[T]
	subjects SubjectProvider[T]
	keys     cache.KeySerializer
	opts     feedOptions
}

// New creates a Feed reading from reader.
func New[T any](reader Reader[T], subjects SubjectProvider[T], keys cache.KeySerializer, opts ...Option) *Feed[T] {
	o := feedOptions{
		namespace: entityNamespace[T](),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if keys == nil {
		keys = cache.NewDefaultKeySerializer()
	}

	return &Feed[T]{
		reader:   reader,
		subjects: subjects,
		keys:     keys,
		opts:     o,
	}
}

// Namespace returns the key namespace of this feed.
func (f *Feed[T]) Namespace() string {
	return f.opts.namespace
}

// Key returns the cache key of the record with the given id.
func (f *Feed[T]) Key(id string) string {
	return f.keys.SerializeKey(f.opts.namespace, id)
}

// Subscribe attaches observer to the record's subject. The last stored
// record, if any, is delivered before Subscribe returns.
func (f *Feed[T]) Subscribe(ctx context.Context, id string, observer cache.Observer[T]) (cache.Subscription, error) {
	subject, err := f.subjects(ctx, f.Key(id))
	if err != nil {
		return nil, err
	}
	return subject.Subscribe(observer), nil
}

// Refresh reads the record from the repository and pushes it to its subject.
func (f *Feed[T]) Refresh(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	var zero T

	subject, err := f.subjects(ctx, f.Key(id))
	if err != nil {
		return zero, err
	}

	record, err := f.reader.GetByID(ctx, id, criteria...)
	if err != nil {
		f.opts.logger.WarnContext(ctx, "refresh failed", "namespace", f.opts.namespace, "id", id, "error", err)
		if f.opts.forwardErrors {
			subject.PushError(err)
		}
		return zero, err
	}

	subject.Push(record)
	return record, nil
}

// Invalidate clears the stored record without notifying observers.
func (f *Feed[T]) Invalidate(ctx context.Context, id string) error {
	subject, err := f.subjects(ctx, f.Key(id))
	if err != nil {
		return err
	}
	subject.Clear()
	return nil
}

// entityNamespace names keys after the record type, e.g. UserProfile -> user_profile.
func entityNamespace[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if name == "" {
		name = t.String()
	}
	return cacheinfra.SnakeCase(name)
}
