// Package cache provides a memoizing cache and a persistent multicast subject.
//
// # Overview
//
// This package exports two building blocks that data access layers combine:
//
//   - Memo: computes a value per key at most once and keeps it forever
//   - Subject: a hot channel that fans values out to many observers and
//     writes the latest one through a Store so late observers receive it
//
// A Store holds a single value. MemoryStore is the in-process implementation;
// the pkg/di container builds disk, shared and SQL backed stores from Config.
//
// # Memo
//
// Get runs the loader on the calling goroutine the first time a key is seen:
//
//	memo := cache.NewMemo[string, *Profile]()
//	profile, err := memo.Get(ctx, "user-123", func(ctx context.Context, id string) (*Profile, error) {
//		return api.FetchProfile(ctx, id)
//	})
//
// Concurrent callers for the same key share one loader invocation. A failing
// loader returns a *LoadError (errors.Is(err, cache.ErrLoadFailed)) and leaves
// the key unresolved, so the next Get tries again. There is no eviction.
//
// # Subject
//
// A Subject is both a Sink (Push, Clear, PushError, PushCompleted) and a
// Source (Subscribe):
//
//	subject, _ := cache.NewSubject[string](cache.NewMemoryStoreWith("10"))
//	sub := subject.Subscribe(cache.ObserverFuncs[string]{
//		Next: func(v string) { fmt.Println("got", v) },
//	})
//	// prints "got 10" before Subscribe returns
//	subject.Push("11") // prints "got 11", store now holds "11"
//	sub.Cancel()
//
// # Delivery Guarantees
//
// Callbacks run synchronously on the goroutine that pushes or subscribes and
// never while the subject's lock is held, so a callback may subscribe, cancel
// or push again. Each observer sees events in the order the subject accepted
// them and receives the stored value before anything pushed after it
// subscribed. When an observer is already inside a callback on another
// goroutine, new events for it are queued and delivered by that goroutine.
//
// # Absent Values
//
// Pushing a nil pointer, interface, channel or function clears the store and
// notifies nobody. Clear does the same for any type.
//
// # Terminal Signals
//
// PushError and PushCompleted reach the observers registered at that moment.
// The subject does not close: later pushes are delivered and later observers
// still receive the stored value, without the earlier terminal signal.
package cache
