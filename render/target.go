package render

import (
	"fmt"

	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
	"kneeboard.dev/core/shm"
)

// targetMode is a RenderTarget's current binding, forming the
// Unattached -> D2D | D3D -> Unattached state machine of spec §4.J:
// a target is acquired for exactly one API at a time, and acquiring
// it again before releasing (or releasing an unattached target) is a
// caller bug, not a recoverable error.
type targetMode int

const (
	targetUnattached targetMode = iota
	targetD2D
	targetD3D
)

func (m targetMode) String() string {
	switch m {
	case targetUnattached:
		return "unattached"
	case targetD2D:
		return "d2d"
	case targetD3D:
		return "d3d"
	default:
		return "invalid"
	}
}

// RenderTarget implements pagesource.RenderTarget: a reusable
// destination surface that PageSources draw into, shared across both
// Direct2D (desktop mirror/UI chrome) and raw D3D11 (VR layer
// textures, tab previews) call sites by forcing every caller to
// declare which API it's about to use via AcquireD2D/AcquireD3D.
//
// Mis-use — acquiring while already attached, or releasing while
// unattached — panics rather than returning an error: it is always a
// programming mistake in this process, never a recoverable runtime
// condition (the teacher's own state-machine types follow the same
// "invalid transition panics" convention for caller bugs).
type RenderTarget struct {
	id   ids.RenderTargetID
	mode targetMode
	size geom.Size[int]

	resources *DXResources
	tex       *poolTexture
}

// NewRenderTarget builds an unattached target of the given pixel
// size, backed by resources for any D3D allocation it needs.
func NewRenderTarget(resources *DXResources, size geom.Size[int]) *RenderTarget {
	return &RenderTarget{id: ids.NextRenderTargetID(), mode: targetUnattached, size: size, resources: resources}
}

func (rt *RenderTarget) ID() ids.RenderTargetID { return rt.id }

func (rt *RenderTarget) Size() geom.Size[int] { return rt.size }

// Resize changes the target's pixel size; only legal while
// unattached, matching the source's "resize invalidates the surface"
// rule.
func (rt *RenderTarget) Resize(size geom.Size[int]) {
	if rt.mode != targetUnattached {
		panic(fmt.Sprintf("render: Resize called while target is %s", rt.mode))
	}
	rt.size = size
}

// D2DContext is the minimal Direct2D drawing surface handed back by
// AcquireD2D; concrete drawing calls live behind this interface so
// RenderTarget's state machine stays pure Go and unit-testable
// without a real D2D device.
type D2DContext interface {
	Release()
}

// AcquireD2D transitions Unattached -> D2D, returning a context valid
// until ReleaseD2D. Panics if the target is already attached.
func (rt *RenderTarget) AcquireD2D() D2DContext {
	if rt.mode != targetUnattached {
		panic(fmt.Sprintf("render: AcquireD2D called while target is %s", rt.mode))
	}
	rt.mode = targetD2D
	return noopD2DContext{}
}

// ReleaseD2D transitions D2D -> Unattached. Panics if not currently
// bound to D2D.
func (rt *RenderTarget) ReleaseD2D(c D2DContext) {
	if rt.mode != targetD2D {
		panic(fmt.Sprintf("render: ReleaseD2D called while target is %s", rt.mode))
	}
	c.Release()
	rt.mode = targetUnattached
}

// AcquireD3D transitions Unattached -> D3D, lazily allocating the
// backing shared texture at rt.size the first time it's needed.
func (rt *RenderTarget) AcquireD3D() (*poolTexture, error) {
	if rt.mode != targetUnattached {
		panic(fmt.Sprintf("render: AcquireD3D called while target is %s", rt.mode))
	}
	if rt.tex == nil && rt.resources != nil {
		tex, err := newPoolTexture(rt.resources, shmIntSize(rt.size))
		if err != nil {
			return nil, err
		}
		rt.tex = tex
	}
	rt.mode = targetD3D
	return rt.tex, nil
}

// ReleaseD3D transitions D3D -> Unattached. Panics if not currently
// bound to D3D.
func (rt *RenderTarget) ReleaseD3D() {
	if rt.mode != targetD3D {
		panic(fmt.Sprintf("render: ReleaseD3D called while target is %s", rt.mode))
	}
	rt.mode = targetUnattached
}

// TargetFor wraps tex — one of shm.Writer's publish-pool slots,
// handed to a RenderFunc — as a RenderTarget pre-attached to D3D, so
// a PageSource/KneeboardView draws directly into the texture that is
// about to be published instead of a separately allocated one (spec
// §4.D step 2: "callers do the actual drawing against the returned
// target"). Returns an error if tex wasn't created by resources.
func (r *DXResources) TargetFor(tex shm.GPUTexture, size geom.Size[int]) (*RenderTarget, error) {
	pt, ok := tex.(*poolTexture)
	if !ok || pt.owner != r {
		return nil, fmt.Errorf("render: TargetFor: texture not owned by this device")
	}
	return &RenderTarget{id: ids.NextRenderTargetID(), mode: targetD3D, size: size, resources: r, tex: pt}, nil
}

// Attached reports whether the target currently has an API bound, for
// callers that want to assert invariants without reaching into the
// mode field directly.
func (rt *RenderTarget) Attached() bool { return rt.mode != targetUnattached }

type noopD2DContext struct{}

func (noopD2DContext) Release() {}
