// Package repositorycache feeds records from go-repository-bun repositories
// into cache subjects.
//
// # Overview
//
// A Feed is the producer side for one record type. Each record id maps to a
// cache key built from the type's namespace and the id, and each key maps to
// one subject. Refresh reads the record through the repository and pushes it;
// observers attached with Subscribe receive the last stored record right
// away and every refreshed version afterwards.
//
// # Basic Usage
//
//	container, err := di.NewContainer(cfg)
//	if err != nil {
//		return err
//	}
//	users := di.NewFeed[User](container, userRepo)
//
//	sub, err := users.Subscribe(ctx, "user-123", cache.ObserverFuncs[User]{
//		Next: func(u User) { render(u) },
//	})
//	defer sub.Cancel()
//
//	_, err = users.Refresh(ctx, "user-123")
//
// # Keys
//
// The namespace defaults to the snake cased type name (UserProfile becomes
// user_profile) and can be replaced with WithNamespace. Keys are built with
// the container's KeySerializer, so "user_profile::user-123" for the default.
//
// # Error Handling
//
// Repository errors are returned from Refresh unchanged. With
// WithErrorForwarding they are also delivered to observers through
// PushError; the stored record is left untouched either way.
package repositorycache
