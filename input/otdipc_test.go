package input

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTDIPCClientDecodesDeviceInfoAndState(t *testing.T) {
	stream := `{"type":"DeviceInfo","data":{"name":"Huion","reportsProximity":false}}
{"type":"State","data":{"x":1,"y":2,"pressure":0.3,"buttons":1,"inRange":false}}
`
	c := NewOTDIPCClient(io.NopCloser(strings.NewReader(stream)))

	var infos []OTDDeviceInfoPayload
	var states []TabletState
	c.DeviceInfo().AddHandler(nil, func(ev OTDDeviceInfoPayload) { infos = append(infos, ev) })
	c.State().AddHandler(nil, func(ev TabletState) { states = append(states, ev) })

	require.NoError(t, c.Run())
	require.Len(t, infos, 1)
	assert.Equal(t, "Huion", infos[0].Name)
	require.Len(t, states, 1)
	// No-proximity device with a nonzero sample synthesizes InRange.
	assert.True(t, states[0].InRange)
}

func TestOTDIPCClientNoProximityTimeoutExpires(t *testing.T) {
	c := NewOTDIPCClient(io.NopCloser(strings.NewReader("")))
	base := time.Now()
	c.now = func() time.Time { return base }

	s1 := c.resolveProximity(OTDStatePayload{X: 5, Pressure: 0.1})
	assert.True(t, s1.InRange)

	c.now = func() time.Time { return base.Add(50 * time.Millisecond) }
	s2 := c.resolveProximity(OTDStatePayload{})
	assert.True(t, s2.InRange, "still within the 100ms no-proximity timeout")

	c.now = func() time.Time { return base.Add(150 * time.Millisecond) }
	s3 := c.resolveProximity(OTDStatePayload{})
	assert.False(t, s3.InRange, "timeout elapsed with no fresh sample")
}

func TestOTDIPCClientReportsProximityPassthrough(t *testing.T) {
	c := NewOTDIPCClient(io.NopCloser(strings.NewReader("")))
	c.reportsProximity = true
	c.now = time.Now

	s := c.resolveProximity(OTDStatePayload{InRange: false})
	assert.False(t, s.InRange)
}
