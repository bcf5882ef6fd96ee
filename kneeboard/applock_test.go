package kneeboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppLockReentrantForSameContext(t *testing.T) {
	var l AppLock
	ctx := context.Background()

	entered := 0
	l.With(ctx, func(ctx context.Context) {
		entered++
		// Re-entering with the ctx this call was given must not
		// deadlock.
		l.With(ctx, func(context.Context) { entered++ })
	})
	assert.Equal(t, 2, entered)
}

func TestAppLockBlocksOtherContext(t *testing.T) {
	var l AppLock
	ctx := context.Background()

	holding := make(chan struct{})
	release := make(chan struct{})
	go l.With(ctx, func(context.Context) {
		close(holding)
		<-release
	})
	<-holding

	acquired := make(chan struct{})
	go l.With(context.Background(), func(context.Context) { close(acquired) })

	select {
	case <-acquired:
		t.Fatal("second caller acquired the lock while the first still held it")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second caller never acquired the lock after release")
	}
}
