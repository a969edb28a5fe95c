package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-cache-subject/cache"
	"github.com/goliatone/go-cache-subject/internal/cacheinfra"
	"github.com/goliatone/go-cache-subject/repositorycache"
	"github.com/uptrace/bun"
	"github.com/viccon/sturdyc"
)

// ErrSubjectType is returned when a key is already bound to a subject of another value type.
var ErrSubjectType = errors.New("di: key is bound to a subject of another type")

// Container provides dependency injection for cache related components.
// It owns the backend resources selected by the configuration and hands out
// exactly one subject per cache key.
type Container struct {
	config        cache.Config
	keySerializer cache.KeySerializer
	subjects      *cache.Memo[string, any]

	shared *sturdyc.Client[any]
	db     *bun.DB
	ownsDB bool

	logger  *slog.Logger
	metrics *cache.Metrics
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger shared by every store and subject.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics overrides the instruments. DefaultMetrics is used otherwise.
func WithMetrics(metrics *cache.Metrics) Option {
	return func(c *Container) {
		c.metrics = metrics
	}
}

// WithDB supplies the database for the sql backend. The container does not
// close a database it did not open.
func WithDB(db *bun.DB) Option {
	return func(c *Container) {
		c.db = db
	}
}

// NewContainer creates a new DI container with the provided configuration.
// It validates the configuration and prepares the selected backend: the
// shared client is created, the database opened and its schema ensured.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:        config,
		keySerializer: cache.NewDefaultKeySerializer(),
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = cache.DefaultMetrics()
	}
	c.subjects = cache.NewMemo[string, any](
		cache.WithMemoLogger(c.logger),
		cache.WithMemoMetrics(c.metrics),
	)

	internal := config.ToInternal()
	switch internal.Backend {
	case cacheinfra.BackendShared:
		client, err := cacheinfra.NewSharedClient(internal.Shared)
		if err != nil {
			return nil, err
		}
		c.shared = client
	case cacheinfra.BackendSQL:
		if err := c.prepareDB(internal.SQL); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

func (c *Container) prepareDB(cfg cacheinfra.SQLConfig) error {
	if c.db == nil {
		db, err := cacheinfra.OpenDB(cfg)
		if err != nil {
			return err
		}
		c.db = db
		c.ownsDB = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := cacheinfra.EnsureSchema(ctx, c.db); err != nil {
		if c.ownsDB {
			_ = c.db.Close()
		}
		return err
	}
	return nil
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// KeySerializer returns the key serializer used to name subjects.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Logger returns the container's logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Subjects returns the number of subjects created so far.
func (c *Container) Subjects() int {
	return c.subjects.Len()
}

// Close releases the database if the container opened it.
func (c *Container) Close() error {
	if c.db != nil && c.ownsDB {
		return c.db.Close()
	}
	return nil
}

// NewStore builds a store for key on the configured backend.
// Since Go methods cannot have type parameters, this is a package-level function.
func NewStore[T any](c *Container, key string) (cache.Store[T], error) {
	internal := c.config.ToInternal()
	storeOpts := []cacheinfra.StoreOption{
		cacheinfra.WithLogger(c.logger),
		cacheinfra.WithMetrics(c.metrics),
	}

	switch internal.Backend {
	case cacheinfra.BackendMemory:
		return cache.NewMemoryStore[T](), nil
	case cacheinfra.BackendShared:
		return cacheinfra.NewSharedStore[T](c.shared, key, storeOpts...), nil
	}

	codec, err := cacheinfra.NewCodec[T](internal.Codec)
	if err != nil {
		return nil, err
	}

	switch internal.Backend {
	case cacheinfra.BackendDisk:
		return cacheinfra.NewDiskStore(internal.Disk, key, codec, storeOpts...)
	case cacheinfra.BackendSQL:
		return cacheinfra.NewSQLStore(c.db, key, codec, internal.SQL.Timeout, storeOpts...)
	default:
		return nil, &cacheinfra.ConfigError{Field: "Backend", Message: fmt.Sprintf("unsupported backend %q", internal.Backend)}
	}
}

// SubjectFor returns the subject bound to key, creating it and its store on
// first use. Every caller asking for the same key gets the same subject.
func SubjectFor[T any](ctx context.Context, c *Container, key string) (*cache.Subject[T], error) {
	v, err := c.subjects.Get(ctx, key, func(ctx context.Context, key string) (any, error) {
		store, err := NewStore[T](c, key)
		if err != nil {
			return nil, err
		}
		return cache.NewSubject(store,
			cache.WithName(key),
			cache.WithSubjectLogger(c.logger),
			cache.WithSubjectMetrics(c.metrics),
		)
	})
	if err != nil {
		return nil, err
	}

	subject, ok := v.(*cache.Subject[T])
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %T", ErrSubjectType, key, v)
	}
	return subject, nil
}

// NewFeed creates a repository feed whose subjects come from this container.
func NewFeed[T any](c *Container, reader repositorycache.Reader[T], opts ...repositorycache.Option) *repositorycache.Feed[T] {
	provider := func(ctx context.Context, key string) (*cache.Subject[T], error) {
		return SubjectFor[T](ctx, c, key)
	}
	return repositorycache.New(reader, provider, c.keySerializer, opts...)
}
