// Package eventbus implements the typed 1:N event primitive used
// throughout the orchestrator (spec §4.B): handlers register against
// an Event[T] and receive a token they can later use to unregister;
// Emit runs a hook chain that may stop propagation; EnqueueForContext
// defers emission onto a target executor (e.g. the UI thread).
//
// Adapted from cogentcore.org/core's events.Listeners/Deque pattern
// (reverse-order dispatch, "last added overrides" semantics)
// generalized from a fixed Event interface to a generic payload type.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// HookResult is returned by a hook function to control whether
// dispatch continues to the next hook / to receivers.
type HookResult int

const (
	Continue HookResult = iota
	StopPropagation
)

// Token identifies a registered handler for later removal.
type Token uint64

var tokenCounter atomic.Uint64

func nextToken() Token {
	return Token(tokenCounter.Add(1))
}

type handlerEntry[T any] struct {
	token Token
	owner any
	fn    func(T)
}

// Executor runs a deferred emission, e.g. by posting to the UI
// thread's dispatch queue.
type Executor interface {
	Enqueue(func())
}

// Event is a typed 1:N event. The zero value is ready to use.
type Event[T any] struct {
	mu       sync.Mutex
	handlers []handlerEntry[T]
	hooks    []func(T) HookResult
}

// AddHandler registers fn to run on Emit, associated with owner so
// EventReceiver can remove it later. Handlers run in reverse
// registration order (last added is called first), matching the
// teacher's Listeners.Call convention so overrides layer naturally.
func (e *Event[T]) AddHandler(owner any, fn func(T)) Token {
	e.mu.Lock()
	defer e.mu.Unlock()
	tok := nextToken()
	e.handlers = append(e.handlers, handlerEntry[T]{token: tok, owner: owner, fn: fn})
	return tok
}

// RemoveHandler removes the handler registered under tok. Idempotent.
func (e *Event[T]) RemoveHandler(tok Token) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, h := range e.handlers {
		if h.token == tok {
			e.handlers = append(e.handlers[:i], e.handlers[i+1:]...)
			return
		}
	}
}

// RemoveOwner removes every handler registered by owner.
func (e *Event[T]) RemoveOwner(owner any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.handlers[:0]
	for _, h := range e.handlers {
		if h.owner != owner {
			out = append(out, h)
		}
	}
	e.handlers = out
}

// PushHook appends fn to the end of the hook chain. Hooks run before
// any receiver and may return StopPropagation to end dispatch; used
// by EventDelay to coalesce repaints during batch updates.
func (e *Event[T]) PushHook(fn func(T) HookResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, fn)
}

// PopHook removes the most recently pushed hook.
func (e *Event[T]) PopHook() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := len(e.hooks); n > 0 {
		e.hooks = e.hooks[:n-1]
	}
}

// Emit snapshots the current receivers and hook chain, then runs the
// hook chain front-to-back, stopping if a hook returns
// StopPropagation, before invoking receivers in reverse registration
// order. Handlers added during Emit are not invoked in this Emit
// (the snapshot is taken up front).
func (e *Event[T]) Emit(arg T) {
	e.mu.Lock()
	hooks := append([]func(T) HookResult(nil), e.hooks...)
	handlers := append([]handlerEntry[T](nil), e.handlers...)
	e.mu.Unlock()

	for _, h := range hooks {
		if h(arg) == StopPropagation {
			return
		}
	}
	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i].fn(arg)
	}
}

// EnqueueForContext defers Emit(arg) onto ex, e.g. the application's
// UI thread dispatcher.
func (e *Event[T]) EnqueueForContext(ex Executor, arg T) {
	ex.Enqueue(func() { e.Emit(arg) })
}

// EventReceiver tracks the tokens owned by one logical receiver, so
// destroying the receiver can remove all of its handlers at once.
type EventReceiver struct {
	mu       sync.Mutex
	removers []func()
}

// track registers a removal closure to run when Close is called.
func (r *EventReceiver) track(remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removers = append(r.removers, remove)
}

// Close removes every handler this receiver registered. Safe to call
// concurrently with an in-flight Emit: in-flight Emits already hold
// their own snapshot of the handler list.
func (r *EventReceiver) Close() {
	r.mu.Lock()
	removers := r.removers
	r.removers = nil
	r.mu.Unlock()
	for _, remove := range removers {
		remove()
	}
}

// Listen is sugar for Event.AddHandler that also registers the
// resulting token with the receiver for later removal via Close.
func Listen[T any](r *EventReceiver, e *Event[T], fn func(T)) {
	tok := e.AddHandler(r, fn)
	r.track(func() { e.RemoveHandler(tok) })
}
