package di

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-cache-subject/cache"
	"github.com/goliatone/go-cache-subject/pkg/testsupport"
)

// TestConcurrentAccess subscribes, pushes and cancels from many goroutines on
// a disk backed subject and checks every observer saw an ordered stream.
func TestConcurrentAccess(t *testing.T) {
	container := newTestContainer(t, diskConfig(t))
	ctx := context.Background()

	subject, err := SubjectFor[int](ctx, container, "concurrent")
	if err != nil {
		t.Fatalf("SubjectFor() failed: %v", err)
	}
	subject.Push(0)

	const (
		numSubscribers = 20
		numPushes      = 200
	)

	recorders := make([]*testsupport.Recorder[int], numSubscribers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= numPushes; i++ {
			subject.Push(i)
		}
	}()

	for i := 0; i < numSubscribers; i++ {
		recorders[i] = testsupport.NewRecorder[int]()
		wg.Add(1)
		go func(rec *testsupport.Recorder[int]) {
			defer wg.Done()
			subject.Subscribe(rec)
			// churn the observer list while pushes are in flight
			subject.Subscribe(testsupport.NewRecorder[int]()).Cancel()
		}(recorders[i])
	}
	wg.Wait()

	for i, rec := range recorders {
		values := rec.Values()
		if len(values) == 0 {
			t.Fatalf("subscriber %d received nothing", i)
		}
		for j := 1; j < len(values); j++ {
			if values[j] != values[j-1]+1 {
				t.Fatalf("subscriber %d saw %d after %d", i, values[j], values[j-1])
			}
		}
		if last := values[len(values)-1]; last != numPushes {
			t.Errorf("subscriber %d ended at %d, want %d", i, last, numPushes)
		}
	}

	if got := subject.SubscriberCount(); got != numSubscribers {
		t.Errorf("Expected %d subscribers, got %d", numSubscribers, got)
	}

	store, err := NewStore[int](container, "concurrent")
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	if v, ok := store.Read(); !ok || v != numPushes {
		t.Errorf("Expected %d on disk, got %d (ok=%v)", numPushes, v, ok)
	}
}

func BenchmarkSubjectFor(b *testing.B) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	keys := make([]string, 64)
	for i := range keys {
		keys[i] = container.KeySerializer().SerializeKey("user", i)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := SubjectFor[string](ctx, container, keys[i%len(keys)]); err != nil {
				b.Fatal(err)
			}
			i++
		}
	})
}

func BenchmarkPushFanOut(b *testing.B) {
	for _, observers := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("observers=%d", observers), func(b *testing.B) {
			subject, err := cache.NewSubject[int](cache.NewMemoryStore[int]())
			if err != nil {
				b.Fatal(err)
			}
			var delivered atomic.Int64
			for i := 0; i < observers; i++ {
				subject.Subscribe(cache.ObserverFuncs[int]{Next: func(int) { delivered.Add(1) }})
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				subject.Push(i)
			}
			b.StopTimer()

			if delivered.Load() != int64(b.N*observers) {
				b.Fatalf("delivered %d, want %d", delivered.Load(), b.N*observers)
			}
		})
	}
}

func BenchmarkDiskPush(b *testing.B) {
	config := cache.DefaultConfig()
	config.Backend = cache.BackendDisk
	config.Disk.Dir = b.TempDir()

	container, err := NewContainer(config)
	if err != nil {
		b.Fatal(err)
	}
	subject, err := SubjectFor[User](context.Background(), container, "user::bench")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		subject.Push(User{ID: "bench", Name: fmt.Sprintf("user-%d", i)})
	}
}
