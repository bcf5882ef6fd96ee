package shm

import (
	"context"

	"golang.org/x/sys/windows"
)

// GPUTexture is a single pool slot: an NT-shareable GPU texture the
// renderer draws into and the writer publishes by handle.
type GPUTexture interface {
	// SharedHandle returns the NT handle other processes duplicate to
	// import this texture (spec §3's "rendered texture NT handle").
	SharedHandle() windows.Handle
	Release()
}

// Fence is a cross-process timeline fence: the writer signals it once
// per publish (spec §4.D step 3) and readers Wait for a specific
// value before copying (spec §4.E step 4).
type Fence interface {
	SharedHandle() windows.Handle
	// Signal advances the fence to value, to be observed after the
	// GPU work up to this publish has been issued to the queue.
	Signal(value uint64) error
	// Wait blocks (cooperatively, honoring ctx) until the fence has
	// reached at least value.
	Wait(ctx context.Context, value uint64) error
}

// Device creates pool textures and the shared fence. Implemented by
// render.DXResources.
type Device interface {
	CreateSharedTexture(size IntSize) (GPUTexture, error)
	CreateSharedFence() (Fence, error)
	// Lost reports whether the device has been removed/reset since it
	// was created (spec §4.D's "If the GPU device is lost").
	Lost() bool
}

// IntSize is a pixel width/height pair, kept as a plain struct here
// (rather than importing geom.Size[int]) so shm has no dependency on
// the renderer's coordinate package.
type IntSize struct{ Width, Height int }

// NewIntSize builds an IntSize from a geom.Size[int]'s components.
func NewIntSize(w, h int) IntSize { return IntSize{Width: w, Height: h} }

// pool is a per-layer ring of GPUTexture slots, written round-robin
// (spec §4.D step 1).
type pool struct {
	slots []GPUTexture
	next  int
}

func newPool(dev Device, size IntSize, count int) (*pool, error) {
	p := &pool{slots: make([]GPUTexture, 0, count)}
	for range count {
		tex, err := dev.CreateSharedTexture(size)
		if err != nil {
			p.releaseAll()
			return nil, err
		}
		p.slots = append(p.slots, tex)
	}
	return p, nil
}

// acquire returns the next slot, round-robin modulo pool size.
func (p *pool) acquire() (GPUTexture, int) {
	idx := p.next
	p.next = (p.next + 1) % len(p.slots)
	return p.slots[idx], idx
}

func (p *pool) releaseAll() {
	for _, s := range p.slots {
		if s != nil {
			s.Release()
		}
	}
	p.slots = nil
}
