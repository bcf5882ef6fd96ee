// Package input implements the device adapters of spec §4.K:
// DirectInputAdapter (DI8 gamepad/keyboard enumeration with hot-plug),
// TabletInputAdapter (Wintab tablet events delivered via WndProc),
// OTDIPCClient (an external OpenTabletDriver IPC pipe client), and the
// shared UserInputDevice binding-match state machine all three build
// on.
package input

import (
	"sync"

	"kneeboard.dev/core/eventbus"
)

// DeviceID identifies one physical input device, stable across
// re-enumeration so stored bindings can be re-applied by device-id
// match (spec §4.K).
type DeviceID string

// ButtonSet is a bitset of currently-active buttons on a device.
type ButtonSet uint64

// Has reports whether bit is set in s.
func (s ButtonSet) Has(bit uint) bool { return s&(1<<bit) != 0 }

// IsSupersetOf reports whether s has every button that other has set,
// used to detect "a new button-down superset-cancels an earlier
// binding" (spec §4.K).
func (s ButtonSet) IsSupersetOf(other ButtonSet) bool { return s&other == other }

// Binding maps an exact ButtonSet on one device to a named action.
// The action is carried as a string rather than this package's own
// enum so input has no dependency on the orchestrator's UserAction
// type (spec §4.L owns that enum); kneeboard.State looks the string
// up via kneeboard.ParseUserAction when dispatching.
type Binding struct {
	Device  DeviceID `yaml:"device"`
	Buttons ButtonSet `yaml:"buttons"`
	Action  string    `yaml:"action"`
}

// ActionFired is emitted when a device's active-button set exactly
// matches one of its bindings.
type ActionFired struct {
	Device DeviceID
	Action string
}

// UserInputDevice is the shared {device_id, bindings, active_buttons}
// state machine of spec §4.K: on every button-state change it checks
// whether the new active set exactly matches a binding, emitting
// ActionFired for the match; a button-down that supersets an
// already-matched binding cancels that earlier action (no new fire
// until the set returns to an exact match again).
type UserInputDevice struct {
	mu            sync.Mutex
	id            DeviceID
	bindings      []Binding
	active        ButtonSet
	lastMatched   ButtonSet
	lastMatchedOK bool

	fired eventbus.Event[ActionFired]
}

// NewUserInputDevice builds a device with id and the given bindings.
func NewUserInputDevice(id DeviceID, bindings []Binding) *UserInputDevice {
	return &UserInputDevice{id: id, bindings: bindings}
}

// ID returns the device's stable identifier.
func (d *UserInputDevice) ID() DeviceID { return d.id }

// SetBindings replaces the device's bindings, e.g. after a re-bind
// triggered by device-id match on re-enumeration (spec §4.K).
func (d *UserInputDevice) SetBindings(bindings []Binding) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings = bindings
}

// Fired lets callers subscribe to matched bindings.
func (d *UserInputDevice) Fired() *eventbus.Event[ActionFired] { return &d.fired }

// SetButtonState reports a new raw active-button set for the device.
// A button-down transition that supersets the previously matched
// binding cancels that binding (so holding an extra button never
// re-triggers it); an exact match against any binding fires that
// binding's action exactly once per transition into the matching set.
func (d *UserInputDevice) SetButtonState(active ButtonSet) {
	d.mu.Lock()
	prev := d.active
	d.active = active

	if d.lastMatchedOK && active != d.lastMatched && active.IsSupersetOf(d.lastMatched) {
		// A new button-down supersets the earlier match: cancel it.
		d.lastMatchedOK = false
	}

	var match *Binding
	for i := range d.bindings {
		if d.bindings[i].Buttons == active {
			match = &d.bindings[i]
			break
		}
	}

	var toFire *ActionFired
	if match != nil && (!d.lastMatchedOK || d.lastMatched != active) && active != prev {
		d.lastMatched = active
		d.lastMatchedOK = true
		toFire = &ActionFired{Device: d.id, Action: match.Action}
	}
	d.mu.Unlock()

	if toFire != nil {
		d.fired.Emit(*toFire)
	}
}

// ActiveButtons returns the device's current raw active-button set.
func (d *UserInputDevice) ActiveButtons() ButtonSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}
