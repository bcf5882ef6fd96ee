package input

import (
	"context"
	"sync"

	"kneeboard.dev/core/eventbus"
	"kneeboard.dev/core/internal/errs"
)

// RawDeviceInfo describes one enumerated DI8 device, the fields this
// package needs regardless of the platform-specific enumeration call
// that produced them.
type RawDeviceInfo struct {
	ID   DeviceID
	Name string
}

// Poller reads the current button state of one device. The real
// Windows implementation polls an acquired IDirectInputDevice8 via
// GetDeviceState; tests supply a fake.
type Poller interface {
	Poll() (ButtonSet, error)
	Close() error
}

// Enumerator lists currently attached devices and opens a Poller for
// one. The Windows implementation (WindowsEnumerator) opens devices
// via IDirectInput8::CreateDevice; its Enumerate returns an empty
// list. Kept as an interface so the hot-plug state machine below is
// testable without a DirectInput runtime.
type Enumerator interface {
	Enumerate() ([]RawDeviceInfo, error)
	Open(id DeviceID) (Poller, error)
}

// DirectInputAdapter enumerates attached DI8 gamepads/keyboards,
// spawns one listener goroutine per device, and publishes button-
// state changes as ButtonStateChanged. Devices are hot-pluggable:
// Rescan (driven by WM_DEVICECHANGE/DBT_DEVNODES_CHANGED on the real
// window) stops listeners for removed devices, starts them for new
// ones, and re-binds stored bindings by device-id match (spec §4.K).
type DirectInputAdapter struct {
	enum Enumerator

	mu       sync.Mutex
	devices  map[DeviceID]*trackedDevice
	bindings map[DeviceID][]Binding

	buttonChanged eventbus.Event[ButtonStateChanged]
}

type trackedDevice struct {
	device *UserInputDevice
	poller Poller
	cancel context.CancelFunc
	done   chan struct{}
}

// ButtonStateChanged is republished for every raw poll, before
// binding matching (UserInputDevice.Fired carries the matched
// action separately).
type ButtonStateChanged struct {
	Device DeviceID
	Active ButtonSet
}

// NewDirectInputAdapter builds an adapter over enum. Call Rescan once
// at startup and again on every device-change notification.
func NewDirectInputAdapter(enum Enumerator) *DirectInputAdapter {
	return &DirectInputAdapter{
		enum:     enum,
		devices:  make(map[DeviceID]*trackedDevice),
		bindings: make(map[DeviceID][]Binding),
	}
}

// ButtonChanged lets callers subscribe to every raw poll.
func (a *DirectInputAdapter) ButtonChanged() *eventbus.Event[ButtonStateChanged] {
	return &a.buttonChanged
}

// SetBindings stores the bindings for a device id, applied whether
// the device is currently attached or appears on a later Rescan.
func (a *DirectInputAdapter) SetBindings(id DeviceID, bindings []Binding) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bindings[id] = bindings
	if td, ok := a.devices[id]; ok {
		td.device.SetBindings(bindings)
	}
}

// Devices returns the currently attached UserInputDevice instances,
// keyed by id.
func (a *DirectInputAdapter) Devices() map[DeviceID]*UserInputDevice {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[DeviceID]*UserInputDevice, len(a.devices))
	for id, td := range a.devices {
		out[id] = td.device
	}
	return out
}

// Rescan re-enumerates attached devices: stops listeners for any
// device no longer present, starts a listener for any newly-attached
// device, and re-binds stored bindings by device-id match (spec
// §4.K).
func (a *DirectInputAdapter) Rescan(ctx context.Context) error {
	current, err := a.enum.Enumerate()
	if err != nil {
		return err
	}
	seen := make(map[DeviceID]bool, len(current))
	for _, info := range current {
		seen[info.ID] = true
	}

	a.mu.Lock()
	var removed []*trackedDevice
	for id, td := range a.devices {
		if !seen[id] {
			removed = append(removed, td)
			delete(a.devices, id)
		}
	}
	a.mu.Unlock()
	for _, td := range removed {
		a.stopLocked(td)
	}

	for _, info := range current {
		a.mu.Lock()
		_, already := a.devices[info.ID]
		a.mu.Unlock()
		if already {
			continue
		}
		if err := a.start(ctx, info); err != nil {
			errs.Log(err)
		}
	}
	return nil
}

func (a *DirectInputAdapter) start(ctx context.Context, info RawDeviceInfo) error {
	poller, err := a.enum.Open(info.ID)
	if err != nil {
		return err
	}
	a.mu.Lock()
	bindings := a.bindings[info.ID]
	a.mu.Unlock()

	device := NewUserInputDevice(info.ID, bindings)
	listenerCtx, cancel := context.WithCancel(ctx)
	td := &trackedDevice{device: device, poller: poller, cancel: cancel, done: make(chan struct{})}

	a.mu.Lock()
	a.devices[info.ID] = td
	a.mu.Unlock()

	go a.listen(listenerCtx, td)
	return nil
}

func (a *DirectInputAdapter) listen(ctx context.Context, td *trackedDevice) {
	defer close(td.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		active, err := td.poller.Poll()
		if err != nil {
			errs.Log(errs.NewTransient(err))
			return
		}
		td.device.SetButtonState(active)
		a.buttonChanged.Emit(ButtonStateChanged{Device: td.device.ID(), Active: active})
	}
}

func (a *DirectInputAdapter) stopLocked(td *trackedDevice) {
	td.cancel()
	<-td.done
	td.poller.Close()
}

// Close stops every listener and closes every open poller.
func (a *DirectInputAdapter) Close() {
	a.mu.Lock()
	devices := a.devices
	a.devices = make(map[DeviceID]*trackedDevice)
	a.mu.Unlock()
	for _, td := range devices {
		a.stopLocked(td)
	}
}
