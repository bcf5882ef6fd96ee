package kneeboard

import (
	"context"
	"sync"
)

// AppLock is the multi-writer-multi-reader settings-mutation lock of
// spec §5: "a re-entrant-for-one-thread lock on top of a shared
// mutex". Go has no ambient thread-local storage, so re-entrancy is
// tracked the idiomatic Go way: through an explicit context.Context
// token, matching this module's convention (task's stop_token
// analogue) of threading cooperative state through ctx rather than
// relying on goroutine identity. A caller that already holds the lock
// (its ctx carries the token) re-enters for free; everyone else
// blocks on the underlying mutex.
type AppLock struct {
	mu sync.Mutex
}

type appLockKey struct{}

// held reports whether ctx already carries this lock's token.
func (l *AppLock) held(ctx context.Context) bool {
	tok, _ := ctx.Value(appLockKey{}).(*AppLock)
	return tok == l
}

// Lock acquires the app lock unless ctx already holds it, and returns
// a context carrying the hold (pass this to anything the locked
// section calls, so it can re-enter) and an unlock function. unlock
// is a no-op when this call was a re-entrant no-op acquire.
func (l *AppLock) Lock(ctx context.Context) (context.Context, func()) {
	if l.held(ctx) {
		return ctx, func() {}
	}
	l.mu.Lock()
	return context.WithValue(ctx, appLockKey{}, l), l.mu.Unlock
}

// With runs fn with the app lock held (re-entrant if ctx already
// holds it), matching spec §5's "bookmarks and bindings are mutated
// only under the app lock".
func (l *AppLock) With(ctx context.Context, fn func(ctx context.Context)) {
	locked, unlock := l.Lock(ctx)
	defer unlock()
	fn(locked)
}
