package cacheinfra

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := OpenDB(SQLConfig{
		Driver:  DriverSQLite,
		DSN:     "file:" + filepath.Join(t.TempDir(), "cache.db"),
		Timeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, EnsureSchema(context.Background(), db))
	return db
}

func TestOpenDB_InvalidConfig(t *testing.T) {
	_, err := OpenDB(SQLConfig{Driver: "oracle", DSN: "x", Timeout: time.Second})

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "SQL.Driver", cfgErr.Field)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, EnsureSchema(context.Background(), db))
}

func TestSQLStore_WriteReadClear(t *testing.T) {
	db := openTestDB(t)

	for _, codec := range []Codec[settings]{JSONCodec[settings]{}, MsgpackCodec[settings]{}} {
		store, err := NewSQLStore[settings](db, "settings::1", codec, time.Second)
		require.NoError(t, err)

		_, ok := store.Read()
		assert.False(t, ok)

		store.Write(settings{Theme: "dark"})
		store.Write(settings{Theme: "light"})

		v, ok := store.Read()
		require.True(t, ok)
		assert.Equal(t, "light", v.Theme, "writes upsert the row")

		count, err := db.NewSelect().Model((*entryRow)(nil)).Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		store.Clear()
		_, ok = store.Read()
		assert.False(t, ok)
	}
}

func TestSQLStore_KeysAreIndependent(t *testing.T) {
	db := openTestDB(t)

	a, err := NewSQLStore[int](db, "a", JSONCodec[int]{}, time.Second)
	require.NoError(t, err)
	b, err := NewSQLStore[int](db, "b", JSONCodec[int]{}, time.Second)
	require.NoError(t, err)

	a.Write(1)
	b.Write(2)
	a.Clear()

	_, ok := a.Read()
	assert.False(t, ok)
	v, ok := b.Read()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestSQLStore_MissingSchemaIsSwallowed(t *testing.T) {
	db, err := OpenDB(SQLConfig{
		Driver:  DriverSQLite,
		DSN:     "file:" + filepath.Join(t.TempDir(), "empty.db"),
		Timeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	metrics, reader := newTestMetrics(t)
	store, err := NewSQLStore[int](db, "k", JSONCodec[int]{}, 0, WithMetrics(metrics))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().SQL.Timeout, store.timeout)

	assert.NotPanics(t, func() { store.Write(1) })
	_, ok := store.Read()
	assert.False(t, ok)
	assert.Equal(t, int64(2), counterValue(t, reader, "cache.store.failures"))
}

func TestNewSQLStore_NilCodec(t *testing.T) {
	_, err := NewSQLStore[int](nil, "k", nil, time.Second)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Codec", cfgErr.Field)
}
