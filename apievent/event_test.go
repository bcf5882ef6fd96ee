package apievent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeUnserializeRoundTrip(t *testing.T) {
	cases := []Event{
		{Name: "SetBrightness", Value: `{"brightness":0.5}`},
		{Name: "a", Value: ""},
		{Name: "RemoteUserAction", Value: "NextPage"},
	}
	for _, e := range cases {
		packet := e.Serialize()
		got, err := Unserialize(packet)
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
}

func TestUnserializeMalformedNeverPanicsAndReturnsFalsy(t *testing.T) {
	bad := []string{
		"",
		"not a packet",
		"0000000a!short!00000000!!",   // name shorter than declared length
		"00000001!a!00000001!b",       // missing trailing '!'
		"zzzzzzzz!a!00000000!!",       // bad hex
	}
	for _, p := range bad {
		ev, err := Unserialize(p)
		require.Error(t, err)
		assert.False(t, ev.Valid())
	}
}

func TestMultiEventEncodeDecodeRoundTrip(t *testing.T) {
	events := []Event{
		{Name: "RemoteUserAction", Value: "NextPage"},
		{Name: "RemoteUserAction", Value: "NextPage"},
	}
	multi, err := EncodeMultiEvent(events)
	require.NoError(t, err)
	assert.Equal(t, EventMultiEvent, multi.Name)

	decoded, err := DecodeMultiEvent(multi.Value)
	require.NoError(t, err)
	assert.Equal(t, events, decoded)
}
