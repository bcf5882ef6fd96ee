package apievent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedQueueExpandsMultiEventWithYieldBetween(t *testing.T) {
	var dispatched []Event
	var yieldCount int

	q := NewOrderedQueue(
		func(ctx context.Context, ev Event) error {
			dispatched = append(dispatched, ev)
			return nil
		},
		func(ctx context.Context) { yieldCount++ },
	)

	multi, err := EncodeMultiEvent([]Event{
		{Name: "RemoteUserAction", Value: "NextPage"},
		{Name: "RemoteUserAction", Value: "NextPage"},
	})
	require.NoError(t, err)
	q.Enqueue(multi)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	// Give the queue a moment to drain the one enqueued batch, then
	// cancel so Run returns.
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	require.Len(t, dispatched, 2)
	assert.Equal(t, "NextPage", dispatched[0].Value)
	assert.Equal(t, "NextPage", dispatched[1].Value)
	assert.Equal(t, 1, yieldCount, "exactly one yield between the two sub-events, none after the last")
}

func TestOrderedQueuePreservesEnqueueOrder(t *testing.T) {
	var order []string
	q := NewOrderedQueue(func(ctx context.Context, ev Event) error {
		order = append(order, ev.Value)
		return nil
	}, nil)

	for _, v := range []string{"1", "2", "3"} {
		q.Enqueue(Event{Name: "x", Value: v})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"1", "2", "3"}, order)
}
