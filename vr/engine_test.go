package vr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
)

const epsilon = 1e-3

func assertNear(t *testing.T, want, got float32, msg string) {
	t.Helper()
	if math.Abs(float64(want-got)) > epsilon {
		t.Fatalf("%s: want %v, got %v", msg, want, got)
	}
}

// TestRecenter is spec scenario S6.
func TestRecenter(t *testing.T) {
	k := NewVRKneeboard()

	hmd := HMDPose{Position: Vec3{X: 0.5, Y: 1.7, Z: 0.1}, Yaw: piF32 / 6}
	k.MaybeRecenter(1, hmd)

	worldPos, worldRot := k.resolvePose(LayerPose{}, 0)

	assertNear(t, 0.5, worldPos.X, "world X")
	assertNear(t, 0, worldPos.Y, "world Y")
	assertNear(t, 0.1, worldPos.Z, "world Z")
	assertNear(t, piF32/6, worldRot.Yaw(), "world yaw")
}

func TestRecenterIsIdempotentUntilCountChanges(t *testing.T) {
	k := NewVRKneeboard()
	k.MaybeRecenter(1, HMDPose{Position: Vec3{X: 1, Y: 0, Z: 0}})
	k.MaybeRecenter(1, HMDPose{Position: Vec3{X: 99, Y: 0, Z: 99}})

	offset, _ := k.recenterSnapshot()
	assertNear(t, 1, offset.X, "offset should not move while recenterCount is unchanged")

	k.MaybeRecenter(2, HMDPose{Position: Vec3{X: 99, Y: 0, Z: 99}})
	offset, _ = k.recenterSnapshot()
	assertNear(t, 99, offset.X, "offset should move once recenterCount changes")
}

// TestGazeHysteresis is spec scenario S5.
func TestGazeHysteresis(t *testing.T) {
	k := NewVRKneeboard()
	k.MaybeRecenter(0, HMDPose{})

	cfg := LayerConfig{
		ID:              ids.NextLayerID(),
		Enabled:         true,
		Pose:            LayerPose{Z: -2},
		NormalSize:      geom.Size[float32]{Width: 1.0, Height: 10},
		GazeTargetScale: 1.0,
		ZoomScale:       2.0,
		EnableGazeZoom:  true,
		OpacityNormal:   0.8,
		OpacityGaze:     1.0,
	}

	frame1 := k.ResolveLayer(cfg, HMDPose{Position: Vec3{X: 0.5, Y: 0, Z: 0}}, 0)
	require.True(t, frame1.IsLookingAtKneeboard, "frame1: edge of the normal-size rect should count as looking")

	frame2 := k.ResolveLayer(cfg, HMDPose{Position: Vec3{X: 0.8, Y: 0, Z: 0}}, 0)
	assert.True(t, frame2.IsLookingAtKneeboard, "frame2: outside the normal rect but inside the zoomed rect, hysteresis should keep it true")

	// Sanity: without the hysteresis (i.e. starting fresh, as if
	// frame1 never happened), the same 0.8 offset would NOT count as
	// looking against the un-zoomed rect.
	fresh := NewVRKneeboard()
	fresh.MaybeRecenter(0, HMDPose{})
	freshResult := fresh.ResolveLayer(cfg, HMDPose{Position: Vec3{X: 0.8, Y: 0, Z: 0}}, 0)
	assert.False(t, freshResult.IsLookingAtKneeboard, "without prior hysteresis state, 0.8 should fall outside the normal rect")
}

func TestResolveFrameElectsActiveViewViaGazeInputFocus(t *testing.T) {
	k := NewVRKneeboard()
	gazed := ids.NextLayerID()
	other := ids.NextLayerID()

	layers := []LayerConfig{
		{ID: other, Enabled: true, Pose: LayerPose{Z: -5, X: 5}, NormalSize: geom.Size[float32]{Width: 0.2, Height: 0.2}, GazeTargetScale: 1},
		{ID: gazed, Enabled: true, Pose: LayerPose{Z: -2}, NormalSize: geom.Size[float32]{Width: 1, Height: 1}, GazeTargetScale: 1},
	}
	settings := GlobalSettings{EnableGazeInputFocus: true, GlobalInputLayerID: other}

	k.ResolveFrame(settings, HMDPose{}, 0, layers)

	assert.Equal(t, gazed, k.ActiveViewID())
}

func TestResolveFrameMirrorsHorizontalView(t *testing.T) {
	k := NewVRKneeboard()
	src := ids.NextLayerID()
	mirror := ids.NextLayerID()

	layers := []LayerConfig{
		{ID: src, Enabled: true, Pose: LayerPose{X: 1, Z: -2}, NormalSize: geom.Size[float32]{Width: 1, Height: 1}, GazeTargetScale: 1},
		{ID: mirror, Enabled: true, ViewType: ViewHorizontalMirror, MirrorOf: src},
	}

	resolved := k.ResolveFrame(GlobalSettings{}, HMDPose{}, 0, layers)

	require.Len(t, resolved, 2)
	var srcResult, mirrorResult ResolvedLayer
	for _, r := range resolved {
		if r.Config.ID == src {
			srcResult = r
		} else {
			mirrorResult = r
		}
	}
	assertNear(t, 1, srcResult.Params.KneeboardPosition.X, "source X")
	assertNear(t, -1, mirrorResult.Params.KneeboardPosition.X, "mirrored X should be negated")
}

const piF32 float32 = math.Pi
