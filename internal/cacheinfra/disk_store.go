package cacheinfra

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// DiskStore persists a single value in a file named after its cache key.
// Read failures degrade to a miss and write failures are logged and dropped.
type DiskStore[T any] struct {
	key   string
	path  string
	codec Codec[T]
	opts  storeOptions

	writeFile func(name string, data []byte, perm os.FileMode) error

	// serializes writers in this process; rename keeps readers consistent.
	mu sync.Mutex
}

// NewDiskStore creates the directory if needed and returns a store for key.
func NewDiskStore[T any](cfg DiskConfig, key string, codec Codec[T], opts ...StoreOption) (*DiskStore[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if codec == nil {
		return nil, &ConfigError{Field: "Codec", Message: "cannot be nil"}
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	return &DiskStore[T]{
		key:       key,
		path:      filepath.Join(cfg.Dir, FileName(key, cfg.Extension)),
		codec:     codec,
		opts:      newStoreOptions(opts),
		writeFile: os.WriteFile,
	}, nil
}

// Path returns the file backing this store.
func (s *DiskStore[T]) Path() string {
	return s.path
}

// Read returns the decoded file contents, or false when the file is missing or unreadable.
func (s *DiskStore[T]) Read() (T, bool) {
	var zero T

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.fail("read", err)
		}
		return zero, false
	}

	value, err := s.codec.Decode(data)
	if err != nil {
		s.fail("decode", err)
		return zero, false
	}
	return value, true
}

// Write replaces the file contents with the encoded value.
func (s *DiskStore[T]) Write(value T) {
	data, err := s.codec.Encode(value)
	if err != nil {
		s.fail("encode", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+"."+uuid.NewString()+".tmp")
	if err := s.writeFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		s.fail("write", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		s.fail("write", err)
	}
}

// Clear removes the file. A missing file is not an error.
func (s *DiskStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.fail("clear", err)
	}
}

func (s *DiskStore[T]) fail(op string, err error) {
	s.opts.logger.Warn("disk store operation failed",
		"key", s.key,
		"path", s.path,
		"op", op,
		"error", err,
	)
	s.opts.metrics.StoreFailure(context.Background(), BackendDisk, op)
}
