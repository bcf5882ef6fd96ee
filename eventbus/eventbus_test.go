package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitReverseOrderAndStop(t *testing.T) {
	var ev Event[int]
	var order []int
	ev.AddHandler(nil, func(v int) { order = append(order, 1) })
	ev.AddHandler(nil, func(v int) { order = append(order, 2) })
	ev.Emit(0)
	assert.Equal(t, []int{2, 1}, order)
}

func TestHookStopsPropagation(t *testing.T) {
	var ev Event[int]
	called := false
	ev.AddHandler(nil, func(v int) { called = true })
	ev.PushHook(func(v int) HookResult { return StopPropagation })
	ev.Emit(1)
	assert.False(t, called)
	ev.PopHook()
	ev.Emit(1)
	assert.True(t, called)
}

func TestHandlersAddedDuringEmitNotCalledThisEmit(t *testing.T) {
	var ev Event[int]
	count := 0
	ev.AddHandler(nil, func(v int) {
		count++
		ev.AddHandler(nil, func(v int) { count += 100 })
	})
	ev.Emit(1)
	require.Equal(t, 1, count)
	ev.Emit(1)
	assert.Equal(t, 1+1+100, count)
}

func TestEventReceiverCloseRemovesHandlers(t *testing.T) {
	var ev Event[int]
	r := &EventReceiver{}
	called := false
	Listen(r, &ev, func(v int) { called = true })
	r.Close()
	ev.Emit(1)
	assert.False(t, called)
}

func TestEventDelayCoalesces(t *testing.T) {
	var ev Event[string]
	var received []string
	ev.AddHandler(nil, func(s string) { received = append(received, s) })

	delay := NewEventDelay(&ev)
	ev.Emit("a")
	ev.Emit("b")
	ev.Emit("c")
	assert.Empty(t, received)
	delay.Close()
	assert.Equal(t, []string{"c"}, received)
}

type fakeExecutor struct {
	fns []func()
}

func (f *fakeExecutor) Enqueue(fn func()) { f.fns = append(f.fns, fn) }

func TestEnqueueForContextDefers(t *testing.T) {
	var ev Event[int]
	got := 0
	ev.AddHandler(nil, func(v int) { got = v })
	ex := &fakeExecutor{}
	ev.EnqueueForContext(ex, 42)
	assert.Equal(t, 0, got)
	require.Len(t, ex.fns, 1)
	ex.fns[0]()
	assert.Equal(t, 42, got)
}
