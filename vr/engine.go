package vr

import (
	"sync"

	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
)

// HMDPose is the runtime's reported head pose at a display time.
// Orientation is carried as yaw/pitch/roll rather than a quaternion:
// every consumer in this engine only needs yaw (recenter) or
// yaw+pitch (gaze ray), and Euler angles make both of those, and the
// test scenarios that name an angle directly, simpler to express.
type HMDPose struct {
	Position           Vec3
	Yaw, Pitch, Roll   float32 // radians
}

// Forward returns the HMD's look direction.
func (p HMDPose) Forward() Vec3 {
	return RotateY(p.Yaw).Mul(RotateX(p.Pitch)).Apply(Vec3{X: 0, Y: 0, Z: -1}).Normalized()
}

// ViewType distinguishes a normally-posed layer from one that mirrors
// another (spec §4.I step 3).
type ViewType int

const (
	ViewNormal ViewType = iota
	ViewHorizontalMirror
)

// LayerPose is a layer's configured pose relative to the seated-eye-
// height origin (spec §3's VRPose, mirrored here so vr doesn't import
// shm).
type LayerPose struct {
	X, Y, Z        float32
	RX, RY, RZ     float32 // radians
	EyeYOffset     float32
}

// PhysicalDirection names which dimension a declared physical size
// measures along (spec §4.I step 5).
type PhysicalDirection int

const (
	PhysicalHorizontal PhysicalDirection = iota
	PhysicalVertical
	PhysicalDiagonal
)

// LayerConfig is everything ResolveFrame needs about one layer, the
// Go mirror of spec §3's per-layer SHM record plus its VR-specific
// config (gaze/zoom/mirror settings).
type LayerConfig struct {
	ID              ids.LayerID
	Enabled         bool
	ViewType        ViewType
	MirrorOf        ids.LayerID // valid iff ViewType == ViewHorizontalMirror

	Pose            LayerPose
	NormalSize      geom.Size[float32]
	HasPhysicalSize bool
	PhysicalLength  float32 // meters
	PhysicalAlong   PhysicalDirection

	OpacityNormal   float32
	OpacityGaze     float32
	ZoomScale       float32
	GazeTargetScale float32
	EnableGazeZoom  bool
	ForceZoom       bool

	BaseCacheKey uint64
}

// RenderParameters is what ResolveFrame computes for one enabled
// layer (spec §4.I).
type RenderParameters struct {
	KneeboardPosition    Vec3
	KneeboardRotation    Mat3
	KneeboardSize        geom.Size[float32]
	CacheKey             uint64
	KneeboardOpacity     float32
	IsLookingAtKneeboard bool
}

// ResolvedLayer pairs a layer's static config with its resolved
// per-frame render parameters.
type ResolvedLayer struct {
	Config LayerConfig
	Params RenderParameters
}

// GlobalSettings is the frame-independent VR state shared by every
// layer (spec §3's VRSettings plus the active-view-election knobs of
// spec §4.I).
type GlobalSettings struct {
	RecenterCount         uint32
	ForceZoom             bool
	EnableGazeInputFocus  bool
	GlobalInputLayerID    ids.LayerID
}

// VRKneeboard is the pose/gaze/recenter/mirror resolver of spec §4.I.
// One instance is shared across a session; it carries the recenter
// snapshot and, per layer, whether the previous frame saw the user
// looking at it (the hysteresis state for gaze-zoom flicker
// avoidance).
type VRKneeboard struct {
	mu sync.Mutex

	haveRecenter  bool
	recenterCount uint32
	recenterYaw   float32
	recenterXZ    Vec3 // Y is always 0

	wasLooking map[ids.LayerID]bool
	activeView ids.LayerID
}

// NewVRKneeboard builds a resolver with no recenter snapshot yet (the
// identity recenter: offset zero, yaw zero).
func NewVRKneeboard() *VRKneeboard {
	return &VRKneeboard{wasLooking: make(map[ids.LayerID]bool)}
}

// MaybeRecenter snapshots hmd's position (Y zeroed) and yaw as the new
// recenter transform whenever recenterCount differs from the last
// value observed (spec §4.I step 1).
func (k *VRKneeboard) MaybeRecenter(recenterCount uint32, hmd HMDPose) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.haveRecenter && recenterCount == k.recenterCount {
		return
	}
	k.recenterCount = recenterCount
	k.recenterYaw = hmd.Yaw
	k.recenterXZ = Vec3{X: hmd.Position.X, Y: 0, Z: hmd.Position.Z}
	k.haveRecenter = true
}

func (k *VRKneeboard) recenterSnapshot() (Vec3, float32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.recenterXZ, k.recenterYaw
}

// resolvePose computes a layer's world position and orientation (spec
// §4.I step 2): the pose's own rotation is applied after recentering
// the pose's local translation into world space, so a zero pose ends
// up exactly at the recenter snapshot's position and yaw (spec
// scenario S6).
func (k *VRKneeboard) resolvePose(pose LayerPose, eyeHeight float32) (Vec3, Mat3) {
	offset, yaw := k.recenterSnapshot()
	recenterRot := RotateY(yaw)

	local := Vec3{X: pose.X, Y: pose.EyeYOffset + eyeHeight, Z: pose.Z}
	worldPos := recenterRot.Apply(local).Add(offset)

	poseRot := RotateX(pose.RX).Mul(RotateY(pose.RY)).Mul(RotateZ(pose.RZ))
	worldRot := poseRot.Mul(recenterRot)

	return worldPos, worldRot
}

// GetHorizontalMirror negates a resolved pose's X position and mirrors
// its yaw (spec §4.I step 3).
func GetHorizontalMirror(pos Vec3, rot Mat3) (Vec3, Mat3) {
	mirroredPos := Vec3{X: -pos.X, Y: pos.Y, Z: pos.Z}
	yaw := rot.Yaw()
	mirroredRot := RotateY(-yaw)
	return mirroredPos, mirroredRot
}

// gazeRayHitsRect intersects a ray from origin in direction dir with
// the plane through planePos with the given orientation's local +Z
// as its facing normal, then reports whether the hit point lies
// within halfSize of the plane's local origin along its right/up
// axes.
func gazeRayHitsRect(origin, dir, planePos Vec3, rot Mat3, halfSize geom.Size[float32]) bool {
	normal := rot.Apply(Vec3{X: 0, Y: 0, Z: 1})
	denom := dir.Dot(normal)
	if denom > -1e-6 && denom < 1e-6 {
		return false
	}
	t := planePos.Sub(origin).Dot(normal) / denom
	if t <= 0 {
		return false
	}
	hit := origin.Add(dir.Scale(t))
	local := hit.Sub(planePos)
	right := rot.Apply(Vec3{X: 1, Y: 0, Z: 0})
	up := rot.Apply(Vec3{X: 0, Y: 1, Z: 0})
	u := local.Dot(right)
	v := local.Dot(up)
	return abs32(u) <= halfSize.Width && abs32(v) <= halfSize.Height
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func scaleSize(s geom.Size[float32], f float32) geom.Size[float32] {
	return geom.Size[float32]{Width: s.Width * f, Height: s.Height * f}
}

// physicalRescale rescales size so its declared physical length
// (along the configured direction) matches lengthMeters (spec §4.I
// step 5's "content declares a physical size").
func physicalRescale(size geom.Size[float32], along PhysicalDirection, lengthMeters float32) geom.Size[float32] {
	if size.IsEmpty() {
		return size
	}
	var current float32
	switch along {
	case PhysicalHorizontal:
		current = size.Width
	case PhysicalVertical:
		current = size.Height
	default: // PhysicalDiagonal
		current = geomDiagonal(size)
	}
	if current == 0 {
		return size
	}
	return scaleSize(size, lengthMeters/current)
}

func geomDiagonal(s geom.Size[float32]) float32 {
	return Vec3{X: s.Width, Y: s.Height}.Length()
}

// ResolveLayer computes one layer's RenderParameters given the
// current HMD pose and eye height (spec §4.I's per-layer algorithm,
// steps 2 and 4-7; recentering and mirroring are handled by the
// caller, ResolveFrame, since they need the full layer set).
func (k *VRKneeboard) ResolveLayer(cfg LayerConfig, hmd HMDPose, eyeHeight float32) RenderParameters {
	worldPos, worldRot := k.resolvePose(cfg.Pose, eyeHeight)

	k.mu.Lock()
	wasLooking := k.wasLooking[cfg.ID]
	k.mu.Unlock()

	testSize := cfg.NormalSize
	if wasLooking {
		testSize = scaleSize(cfg.NormalSize, cfg.ZoomScale)
	}
	halfSize := scaleSize(testSize, cfg.GazeTargetScale*0.5)

	looking := gazeRayHitsRect(hmd.Position, hmd.Forward(), worldPos, worldRot, halfSize)

	k.mu.Lock()
	k.wasLooking[cfg.ID] = looking
	k.mu.Unlock()

	size := cfg.NormalSize
	if cfg.ForceZoom || (looking && cfg.EnableGazeZoom) {
		size = scaleSize(cfg.NormalSize, cfg.ZoomScale)
	}
	if cfg.HasPhysicalSize {
		size = physicalRescale(size, cfg.PhysicalAlong, cfg.PhysicalLength)
	}

	opacity := cfg.OpacityNormal
	if looking {
		opacity = cfg.OpacityGaze
	}

	cacheKey := cfg.BaseCacheKey
	if looking {
		cacheKey |= 1
	}

	return RenderParameters{
		KneeboardPosition:    worldPos,
		KneeboardRotation:    worldRot,
		KneeboardSize:        size,
		CacheKey:             cacheKey,
		KneeboardOpacity:     opacity,
		IsLookingAtKneeboard: looking,
	}
}

// ResolveFrame resolves every enabled layer, recentering first, then
// resolving normal layers, then mirror layers (which reference an
// already-resolved normal layer, treating it as enabled even if it
// isn't — spec §4.I step 3), and finally elects the active input
// view (spec §4.I's active-view election).
func (k *VRKneeboard) ResolveFrame(settings GlobalSettings, hmd HMDPose, eyeHeight float32, layers []LayerConfig) []ResolvedLayer {
	k.MaybeRecenter(settings.RecenterCount, hmd)

	resolvedByID := make(map[ids.LayerID]ResolvedLayer, len(layers))
	var normal []LayerConfig
	var mirrors []LayerConfig
	for _, cfg := range layers {
		if cfg.ViewType == ViewHorizontalMirror {
			mirrors = append(mirrors, cfg)
		} else {
			normal = append(normal, cfg)
		}
	}

	var out []ResolvedLayer
	for _, cfg := range normal {
		params := k.ResolveLayer(cfg, hmd, eyeHeight)
		r := ResolvedLayer{Config: cfg, Params: params}
		resolvedByID[cfg.ID] = r
		if cfg.Enabled {
			out = append(out, r)
		}
	}

	for _, cfg := range mirrors {
		src, ok := resolvedByID[cfg.MirrorOf]
		if !ok {
			src = ResolvedLayer{Config: cfg, Params: k.ResolveLayer(cfg, hmd, eyeHeight)}
		}
		pos, rot := GetHorizontalMirror(src.Params.KneeboardPosition, src.Params.KneeboardRotation)
		params := src.Params
		params.KneeboardPosition = pos
		params.KneeboardRotation = rot
		r := ResolvedLayer{Config: cfg, Params: params}
		resolvedByID[cfg.ID] = r
		if cfg.Enabled {
			out = append(out, r)
		}
	}

	k.electActiveView(settings, out)
	return out
}

// electActiveView implements spec §4.I's active-view election: the
// default is config.global_input_layer_id; if gaze input focus is
// enabled and no gazed layer is already active, the last enabled
// layer currently gazed becomes active.
func (k *VRKneeboard) electActiveView(settings GlobalSettings, resolved []ResolvedLayer) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.activeView.IsNull() {
		k.activeView = settings.GlobalInputLayerID
	}

	if !settings.EnableGazeInputFocus {
		return
	}

	activeIsGazed := false
	for _, r := range resolved {
		if r.Config.ID == k.activeView && r.Params.IsLookingAtKneeboard {
			activeIsGazed = true
			break
		}
	}
	if activeIsGazed {
		return
	}

	for i := len(resolved) - 1; i >= 0; i-- {
		if resolved[i].Params.IsLookingAtKneeboard {
			k.activeView = resolved[i].Config.ID
			return
		}
	}
}

// ActiveViewID returns the layer currently elected for input focus.
func (k *VRKneeboard) ActiveViewID() ids.LayerID {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.activeView
}
