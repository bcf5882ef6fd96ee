package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserInputDeviceExactMatchFires(t *testing.T) {
	d := NewUserInputDevice("pad1", []Binding{
		{Device: "pad1", Buttons: 0b011, Action: "NextPage"},
	})
	var fired []ActionFired
	d.Fired().AddHandler(nil, func(ev ActionFired) { fired = append(fired, ev) })

	d.SetButtonState(0b001)
	d.SetButtonState(0b011)

	require.Len(t, fired, 1)
	assert.Equal(t, "NextPage", fired[0].Action)
}

func TestUserInputDeviceSupersetCancelsEarlierBinding(t *testing.T) {
	d := NewUserInputDevice("pad1", []Binding{
		{Device: "pad1", Buttons: 0b011, Action: "NextPage"},
		{Device: "pad1", Buttons: 0b111, Action: "PreviousPage"},
	})
	var fired []ActionFired
	d.Fired().AddHandler(nil, func(ev ActionFired) { fired = append(fired, ev) })

	d.SetButtonState(0b011) // fires NextPage
	d.SetButtonState(0b111) // supersets it, cancels, then exact-matches PreviousPage

	require.Len(t, fired, 2)
	assert.Equal(t, "NextPage", fired[0].Action)
	assert.Equal(t, "PreviousPage", fired[1].Action)
}

func TestUserInputDeviceNoRefireWithoutTransition(t *testing.T) {
	d := NewUserInputDevice("pad1", []Binding{
		{Device: "pad1", Buttons: 0b001, Action: "NextPage"},
	})
	var count int
	d.Fired().AddHandler(nil, func(ActionFired) { count++ })

	d.SetButtonState(0b001)
	d.SetButtonState(0b001)

	assert.Equal(t, 1, count)
}

func TestButtonSetIsSupersetOf(t *testing.T) {
	assert.True(t, ButtonSet(0b111).IsSupersetOf(0b011))
	assert.False(t, ButtonSet(0b011).IsSupersetOf(0b111))
}
