package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadFailed matches any *LoadError returned by Memo.Get.
	ErrLoadFailed = errors.New("cache: loader failed")

	// ErrNilLoader is returned when Memo.Get is called without a loader.
	ErrNilLoader = errors.New("cache: loader cannot be nil")

	// ErrNilValue is returned when a loader produces a nil value for a nilable type.
	ErrNilValue = errors.New("cache: loader returned a nil value")

	// ErrRecursiveLoad is returned when a loader asks its own Memo for the key
	// it is computing.
	ErrRecursiveLoad = errors.New("cache: loader requested the key it is loading")

	// ErrNilStore is returned when a Subject is built without a Store.
	ErrNilStore = errors.New("cache: store cannot be nil")
)

// LoadError reports a loader failure for a single key. The key stays unresolved.
type LoadError struct {
	Key any
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("cache: load %v: %v", e.Key, e.Err)
}

// Unwrap returns the loader's error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports ErrLoadFailed as a match so callers can test the category.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailed
}
