package eventbus

// EventDelay is a scoped RAII helper that coalesces repaint (or any
// other) events raised while a batch update is in progress: it pushes
// a hook that swallows every Emit, then on Close either emits once
// (if any were swallowed) or does nothing.
//
// Usage:
//
//	delay := eventbus.NewEventDelay(&needsRepaint)
//	defer delay.Close()
//	... mutate several things, each firing needsRepaint.Emit(...) ...
type EventDelay[T any] struct {
	event     *Event[T]
	fired     bool
	lastArg   T
	hasArg    bool
}

// NewEventDelay begins coalescing e: every Emit while the delay is
// open is swallowed and remembered instead of dispatched.
func NewEventDelay[T any](e *Event[T]) *EventDelay[T] {
	d := &EventDelay[T]{event: e}
	e.PushHook(func(arg T) HookResult {
		d.fired = true
		d.lastArg = arg
		d.hasArg = true
		return StopPropagation
	})
	return d
}

// Close ends coalescing and, if at least one Emit was swallowed,
// emits once with the most recent argument.
func (d *EventDelay[T]) Close() {
	d.event.PopHook()
	if d.fired && d.hasArg {
		d.event.Emit(d.lastArg)
	}
}
