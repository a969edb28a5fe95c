package cacheinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// entryRow is one persisted cache value.
type entryRow struct {
	bun.BaseModel `bun:"table:cache_entries"`

	CacheKey  string    `bun:"cache_key,pk"`
	Payload   []byte    `bun:"payload,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// OpenDB opens a bun database for the configured driver.
func OpenDB(cfg SQLConfig) (*bun.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverSQLite:
		sqldb, err := sql.Open(DriverSQLite, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// sqlite allows a single writer
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres:
		sqldb, err := sql.Open(DriverPostgres, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, &ConfigError{Field: "SQL.Driver", Message: fmt.Sprintf("unsupported driver %q", cfg.Driver)}
	}
}

// EnsureSchema creates the cache_entries table when it does not exist.
func EnsureSchema(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*entryRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create cache_entries: %w", err)
	}
	return nil
}

// SQLStore keeps the value for one key in a cache_entries row.
type SQLStore[T any] struct {
	key     string
	db      bun.IDB
	codec   Codec[T]
	timeout time.Duration
	opts    storeOptions
}

// NewSQLStore returns a store bound to key. The schema must already exist.
func NewSQLStore[T any](db bun.IDB, key string, codec Codec[T], timeout time.Duration, opts ...StoreOption) (*SQLStore[T], error) {
	if codec == nil {
		return nil, &ConfigError{Field: "Codec", Message: "cannot be nil"}
	}
	if timeout <= 0 {
		timeout = DefaultConfig().SQL.Timeout
	}

	return &SQLStore[T]{
		key:     key,
		db:      db,
		codec:   codec,
		timeout: timeout,
		opts:    newStoreOptions(opts),
	}, nil
}

// Read loads and decodes the row for the key.
func (s *SQLStore[T]) Read() (T, bool) {
	var zero T

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var row entryRow
	err := s.db.NewSelect().
		Model(&row).
		Where("cache_key = ?", s.key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.fail(ctx, "read", err)
		}
		return zero, false
	}

	value, err := s.codec.Decode(row.Payload)
	if err != nil {
		s.fail(ctx, "decode", err)
		return zero, false
	}
	return value, true
}

// Write upserts the encoded value.
func (s *SQLStore[T]) Write(value T) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	data, err := s.codec.Encode(value)
	if err != nil {
		s.fail(ctx, "encode", err)
		return
	}

	row := &entryRow{
		CacheKey:  s.key,
		Payload:   data,
		UpdatedAt: time.Now().UTC(),
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (cache_key) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		s.fail(ctx, "write", err)
	}
}

// Clear deletes the row for the key.
func (s *SQLStore[T]) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.db.NewDelete().
		Model((*entryRow)(nil)).
		Where("cache_key = ?", s.key).
		Exec(ctx)
	if err != nil {
		s.fail(ctx, "clear", err)
	}
}

func (s *SQLStore[T]) fail(ctx context.Context, op string, err error) {
	s.opts.logger.WarnContext(ctx, "sql store operation failed",
		"key", s.key,
		"op", op,
		"error", err,
	)
	s.opts.metrics.StoreFailure(context.Background(), BackendSQL, op)
}
