package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type profile struct {
	ID string
}

func countingLoader(calls *atomic.Int32) LoaderFunc[string, *profile] {
	return func(ctx context.Context, key string) (*profile, error) {
		calls.Add(1)
		return &profile{ID: key}, nil
	}
}

func TestMemo_ComputesOnce(t *testing.T) {
	memo := NewMemo[string, *profile]()
	var calls atomic.Int32

	first, err := memo.Get(context.Background(), "user-1", countingLoader(&calls))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		got, err := memo.Get(context.Background(), "user-1", countingLoader(&calls))
		require.NoError(t, err)
		assert.Same(t, first, got)
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, memo.Len())
}

func TestMemo_ConcurrentComputeOnce(t *testing.T) {
	memo := NewMemo[string, *profile]()
	var calls atomic.Int32
	start := make(chan struct{})

	loader := func(ctx context.Context, key string) (*profile, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &profile{ID: key}, nil
	}

	const callers = 64
	results := make([]*profile, callers)

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			<-start
			p, err := memo.Get(context.Background(), "shared", loader)
			results[i] = p
			return err
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), calls.Load(), "loader must run exactly once")
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}

func TestMemo_KeyIndependence(t *testing.T) {
	memo := NewMemo[string, string]()
	var aCalls, bCalls atomic.Int32

	a, err := memo.Get(context.Background(), "a", func(ctx context.Context, key string) (string, error) {
		aCalls.Add(1)
		return "value-a", nil
	})
	require.NoError(t, err)

	b, err := memo.Get(context.Background(), "b", func(ctx context.Context, key string) (string, error) {
		bCalls.Add(1)
		return "value-b", nil
	})
	require.NoError(t, err)

	assert.Equal(t, "value-a", a)
	assert.Equal(t, "value-b", b)
	assert.Equal(t, int32(1), aCalls.Load())
	assert.Equal(t, int32(1), bCalls.Load())
}

func TestMemo_DifferentKeysDoNotBlock(t *testing.T) {
	memo := NewMemo[string, string]()
	started := make(chan struct{})
	release := make(chan struct{})

	slowDone := make(chan error, 1)
	go func() {
		_, err := memo.Get(context.Background(), "slow", func(ctx context.Context, key string) (string, error) {
			close(started)
			<-release
			return "slow", nil
		})
		slowDone <- err
	}()
	<-started

	fast := make(chan string, 1)
	go func() {
		v, _ := memo.Get(context.Background(), "fast", func(ctx context.Context, key string) (string, error) {
			return "fast", nil
		})
		fast <- v
	}()

	select {
	case v := <-fast:
		assert.Equal(t, "fast", v)
	case <-time.After(2 * time.Second):
		t.Fatal("lookup for an unrelated key waited on a slow loader")
	}

	close(release)
	require.NoError(t, <-slowDone)
}

func TestMemo_LoadFailureIsNotCached(t *testing.T) {
	memo := NewMemo[string, int]()
	cause := errors.New("backend unavailable")
	var calls atomic.Int32

	failing := func(ctx context.Context, key string) (int, error) {
		calls.Add(1)
		return 0, cause
	}

	_, err := memo.Get(context.Background(), "k", failing)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.ErrorIs(t, err, cause)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "k", loadErr.Key)

	_, ok := memo.Peek("k")
	assert.False(t, ok)

	_, err = memo.Get(context.Background(), "k", failing)
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load(), "every Get after a failure runs the loader again")

	v, err := memo.Get(context.Background(), "k", func(ctx context.Context, key string) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestMemo_NilValueIsAFailure(t *testing.T) {
	memo := NewMemo[string, *profile]()

	_, err := memo.Get(context.Background(), "k", func(ctx context.Context, key string) (*profile, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrNilValue)
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.Equal(t, 0, memo.Len())
}

func TestMemo_NilLoader(t *testing.T) {
	memo := NewMemo[string, int]()

	_, err := memo.Get(context.Background(), "k", nil)
	assert.ErrorIs(t, err, ErrNilLoader)
}

func TestMemo_ResolvedKeyIgnoresLoader(t *testing.T) {
	memo := NewMemo[int, string]()

	_, err := memo.Get(context.Background(), 7, func(ctx context.Context, key int) (string, error) {
		return fmt.Sprintf("seven-%d", key), nil
	})
	require.NoError(t, err)

	v, err := memo.Get(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.Equal(t, "seven-7", v)
}

func TestMemo_WaiterHonorsContext(t *testing.T) {
	memo := NewMemo[string, string]()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	loader := func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		close(started)
		<-release
		return "done", nil
	}

	loaded := make(chan string, 1)
	go func() {
		v, _ := memo.Get(context.Background(), "k", loader)
		loaded <- v
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := memo.Get(ctx, "k", loader)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.Equal(t, "done", <-loaded)

	v, err := memo.Get(context.Background(), "k", loader)
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemo_PanicReleasesKey(t *testing.T) {
	memo := NewMemo[string, string]()

	assert.Panics(t, func() {
		_, _ = memo.Get(context.Background(), "k", func(ctx context.Context, key string) (string, error) {
			panic("loader exploded")
		})
	})

	v, err := memo.Get(context.Background(), "k", func(ctx context.Context, key string) (string, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}

func TestMemo_Peek(t *testing.T) {
	memo := NewMemo[string, int]()

	_, ok := memo.Peek("missing")
	assert.False(t, ok)

	_, err := memo.Get(context.Background(), "present", func(ctx context.Context, key string) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)

	v, ok := memo.Peek("present")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestMemo_RecursiveLoadFails(t *testing.T) {
	memo := NewMemo[string, int]()

	var loader LoaderFunc[string, int]
	loader = func(ctx context.Context, key string) (int, error) {
		return memo.Get(ctx, key, loader)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := memo.Get(ctx, "self", loader)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecursiveLoad)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, memo.Len())
}

func TestMemo_NestedLoadOfOtherKey(t *testing.T) {
	memo := NewMemo[string, int]()

	v, err := memo.Get(context.Background(), "outer", func(ctx context.Context, key string) (int, error) {
		inner, err := memo.Get(ctx, "inner", func(ctx context.Context, key string) (int, error) {
			return 1, nil
		})
		return inner + 1, err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, memo.Len())
}
