package apievent

import (
	"context"
	"sync"
)

// Deque is an infinitely buffered double-ended queue of APIEvents.
// Adapted from cogentcore.org/core's events.Deque: a FIFO "Back" plus
// a LIFO "Front" so urgent items can be pushed ahead of the backlog,
// guarded by a condition variable rather than a channel so NextEvent
// can block without spinning.
type Deque struct {
	back  []Event
	front []Event

	mu   sync.Mutex
	cond sync.Cond
	init sync.Once
}

func (q *Deque) lockAndInit() {
	q.init.Do(func() { q.cond.L = &q.mu })
	q.mu.Lock()
}

// NextEvent blocks until an event is available, then returns it,
// preferring Front (LIFO) entries over Back (FIFO) ones.
func (q *Deque) NextEvent() Event {
	q.lockAndInit()
	defer q.mu.Unlock()
	for {
		if n := len(q.front); n > 0 {
			e := q.front[n-1]
			q.front = q.front[:n-1]
			return e
		}
		if n := len(q.back); n > 0 {
			e := q.back[0]
			q.back = q.back[1:]
			return e
		}
		q.cond.Wait()
	}
}

// Send appends ev to the back of the queue (FIFO order).
func (q *Deque) Send(ev Event) {
	q.lockAndInit()
	q.back = append(q.back, ev)
	q.mu.Unlock()
	q.cond.Signal()
}

// SendFirst pushes ev to the front of the queue, to be served before
// anything already queued.
func (q *Deque) SendFirst(ev Event) {
	q.lockAndInit()
	q.front = append(q.front, ev)
	q.mu.Unlock()
	q.cond.Signal()
}

// Handler processes one decoded Event. The OrderedQueue itself calls
// its yield function between steps of a multi-event batch, so
// unrelated UI work can interleave (spec §4.F).
type Handler func(ctx context.Context, ev Event) error

// OrderedQueue drains a Deque on the calling goroutine (standing in
// for "the UI thread" of spec §4.F/§5), executing each event to
// completion before starting the next, and expanding MultiEvent
// batches into their constituent events with a yield between each.
type OrderedQueue struct {
	deque   Deque
	handler Handler
	yield   func(ctx context.Context)
}

// NewOrderedQueue builds a queue that dispatches to handler, yielding
// via yield between steps of a MultiEvent batch (pass nil for no-op
// yielding, e.g. in tests).
func NewOrderedQueue(handler Handler, yield func(ctx context.Context)) *OrderedQueue {
	if yield == nil {
		yield = func(context.Context) {}
	}
	return &OrderedQueue{handler: handler, yield: yield}
}

// Enqueue queues a raw received event for ordered dispatch.
func (q *OrderedQueue) Enqueue(ev Event) {
	q.deque.Send(ev)
}

// Run drains events until ctx is cancelled, dispatching each to
// completion before starting the next (spec §4.F: "each received
// event is either emitted as-is on the UI thread, or, if
// name == EVT_MULTI_EVENT, decoded ... and emitted one at a time with
// a UI-thread yield between each").
func (q *OrderedQueue) Run(ctx context.Context) error {
	for {
		ev := q.next(ctx)
		if ev == nil {
			return ctx.Err()
		}
		if err := q.dispatch(ctx, *ev); err != nil {
			return err
		}
	}
}

// next returns the next event, or nil if ctx is done first.
func (q *OrderedQueue) next(ctx context.Context) *Event {
	type result struct{ ev Event }
	ch := make(chan result, 1)
	go func() { ch <- result{q.deque.NextEvent()} }()
	select {
	case r := <-ch:
		return &r.ev
	case <-ctx.Done():
		return nil
	}
}

func (q *OrderedQueue) dispatch(ctx context.Context, ev Event) error {
	if ev.Name != EventMultiEvent {
		return q.handler(ctx, ev)
	}
	events, err := DecodeMultiEvent(ev.Value)
	if err != nil {
		return err
	}
	for i, sub := range events {
		if err := q.handler(ctx, sub); err != nil {
			return err
		}
		if i != len(events)-1 {
			q.yield(ctx)
		}
	}
	return nil
}
