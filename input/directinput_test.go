package input

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoller struct {
	mu     sync.Mutex
	states chan ButtonSet
	closed bool
}

func (p *fakePoller) Poll() (ButtonSet, error) {
	v, ok := <-p.states
	if !ok {
		// Closing states ends the adapter's listener, so a later
		// Rescan/Close can stop it without a pending Poll.
		return 0, errors.New("fake poller: states closed")
	}
	return v, nil
}

func (p *fakePoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeEnumerator struct {
	mu      sync.Mutex
	devices []RawDeviceInfo
	pollers map[DeviceID]*fakePoller
}

func (e *fakeEnumerator) Enumerate() ([]RawDeviceInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]RawDeviceInfo(nil), e.devices...), nil
}

func (e *fakeEnumerator) Open(id DeviceID) (Poller, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := &fakePoller{states: make(chan ButtonSet, 4)}
	e.pollers[id] = p
	return p, nil
}

func TestDirectInputAdapterRescanStartsAndStops(t *testing.T) {
	enum := &fakeEnumerator{
		devices: []RawDeviceInfo{{ID: "pad1", Name: "Gamepad"}},
		pollers: make(map[DeviceID]*fakePoller),
	}
	a := NewDirectInputAdapter(enum)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, a.Rescan(ctx))
	assert.Len(t, a.Devices(), 1)

	enum.mu.Lock()
	enum.devices = nil
	close(enum.pollers["pad1"].states)
	enum.mu.Unlock()

	require.NoError(t, a.Rescan(ctx))
	assert.Len(t, a.Devices(), 0)
}

func TestDirectInputAdapterPublishesButtonChanges(t *testing.T) {
	enum := &fakeEnumerator{
		devices: []RawDeviceInfo{{ID: "pad1", Name: "Gamepad"}},
		pollers: make(map[DeviceID]*fakePoller),
	}
	a := NewDirectInputAdapter(enum)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []ButtonStateChanged
	a.ButtonChanged().AddHandler(nil, func(ev ButtonStateChanged) {
		mu.Lock()
		seen = append(seen, ev)
		mu.Unlock()
	})

	require.NoError(t, a.Rescan(ctx))
	poller := enum.pollers["pad1"]
	poller.states <- ButtonSet(0b101)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, ButtonSet(0b101), seen[0].Active)
	mu.Unlock()
}
