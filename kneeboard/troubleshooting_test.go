package kneeboard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTroubleshootingRingBufferWraps(t *testing.T) {
	ts := NewTroubleshooting()
	for i := 0; i < troubleshootingCapacity+3; i++ {
		ts.Log(fmt.Sprintf("line %d", i))
	}
	lines := ts.Lines()
	require.Len(t, lines, troubleshootingCapacity)
	assert.Equal(t, "line 3", lines[0])
	assert.Equal(t, fmt.Sprintf("line %d", troubleshootingCapacity+2), lines[len(lines)-1])
}

func TestTroubleshootingSnapshot(t *testing.T) {
	ts := NewTroubleshooting()
	ts.Log("hello")
	ts.SetGPUState(GPUState{AdapterLUID: 7, DeviceLost: true})
	ts.SetVRState(VRRuntimeState{RuntimeName: "OpenXR", Active: true})

	snap := ts.Snapshot()
	assert.Equal(t, []string{"hello"}, snap.Lines)
	assert.Equal(t, uint64(7), snap.GPU.AdapterLUID)
	assert.True(t, snap.VR.Active)
}
