package shm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"kneeboard.dev/core/internal/errs"
)

// Snapshot is a reader's copy of one published frame, plus the
// client-local textures each enabled layer was copied into (spec
// §4.E step 4) — what a consumer actually renders from.
type Snapshot struct {
	Frame      Frame
	Sequence   uint64
	observedAt time.Time
	Locals     [MaxViewCount]GPUTexture
}

// ImportedTexture is a client-side texture bound to an imported NT
// handle from the writer, plus the client-local copy it was rendered
// into.
type ImportedTexture struct {
	SourceHandle windows.Handle
	Local        GPUTexture
}

// ClientDevice is the per-reader GPU surface: it imports the writer's
// shared handles and performs the fenced copy into a client-local
// texture (spec §4.E steps 3-4).
type ClientDevice interface {
	// ImportTexture opens a writer-owned NT handle in this process
	// and wraps it as a bound texture. Reader calls it once per
	// handle it has not seen before and caches the result.
	ImportTexture(sourceHandle windows.Handle) (GPUTexture, error)
	ImportFence(sourceHandle windows.Handle) (Fence, error)
	// CopyInto copies src to a client-local texture, gated on
	// waiting for fence to reach waitValue, and returns the local
	// texture plus a completion signal the caller can wait on before
	// reuse.
	CopyInto(ctx context.Context, src GPUTexture, fence Fence, waitValue uint64) (GPUTexture, <-chan struct{}, error)
}

// Reader is a per-injected-client cache of the writer's latest frame
// (spec §4.E).
type Reader struct {
	mu sync.Mutex

	view       uintptr
	mapping    windows.Handle
	device     ClientDevice

	staleAfter time.Duration

	lastSeq   uint64
	lastRead  time.Time
	cached    *Snapshot
	importedTex   map[windows.Handle]GPUTexture
	importedFence map[windows.Handle]Fence

	inFlight []<-chan struct{}
}

// OpenReader opens an existing SHM region by reverse-domain name.
func OpenReader(reverseDomain string, device ClientDevice, staleAfter time.Duration) (*Reader, error) {
	name, err := windows.UTF16PtrFromString(regionName(reverseDomain))
	if err != nil {
		return nil, err
	}
	mapping, err := windows.OpenFileMapping(windows.FILE_MAP_READ, false, name)
	if err != nil {
		return nil, fmt.Errorf("shm: OpenFileMapping: %w", err)
	}
	view, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ, 0, 0, 0)
	if err != nil {
		windows.CloseHandle(mapping)
		return nil, fmt.Errorf("shm: MapViewOfFile: %w", err)
	}
	return &Reader{
		view:          view,
		mapping:       mapping,
		device:        device,
		staleAfter:    staleAfter,
		importedTex:   make(map[windows.Handle]GPUTexture),
		importedFence: make(map[windows.Handle]Fence),
	}, nil
}

// readSeq reads the sequence field with an atomic load, matching the
// writer's atomic store.
func (r *Reader) readSeq() uint64 {
	return atomic.LoadUint64((*uint64)(unsafe.Pointer(r.view + unsafe.Offsetof(Header{}.Sequence))))
}

// seqlockRead loops until the header sequence is identical before and
// after copying header+layers, per spec §4.E step 2 / §5's "never a
// torn header" guarantee. Tested by scenario S4.
func (r *Reader) seqlockRead() (Frame, uint64) {
	for {
		seq1 := r.readSeq()
		var frame Frame
		frame.Header = *(*Header)(unsafe.Pointer(r.view))
		layers := unsafe.Slice((*Layer)(unsafe.Pointer(r.view+unsafe.Sizeof(Header{}))), MaxViewCount)
		copy(frame.Layers[:], layers)
		seq2 := r.readSeq()
		if seq1 == seq2 {
			return frame, seq1
		}
		// A publish raced us; retry (spec §4.D/§5: readers spin/retry
		// until stable — never return a torn header).
	}
}

// MaybeGet implements spec §4.E: returns the cached snapshot if the
// sequence hasn't changed (unless it has gone stale), otherwise reads
// a fresh one, imports any unfamiliar handles, issues the fenced GPU
// copy, and broadcasts the consumed sequence tagged with clientPID so
// the writer's per-client table (Writer.BroadcastSeen) records this
// reader's progress separately from any other client (spec §4.D). broadcast is typically a thin wrapper over the
// cross-process mailslot/event the writer listens on, since Reader
// and Writer live in different processes and cannot share a method
// call directly.
func (r *Reader) MaybeGet(ctx context.Context, clientPID uint32, broadcast func(clientPID uint32, seq uint64)) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.readSeq()
	if r.cached != nil && seq == r.lastSeq {
		if time.Since(r.lastRead) < r.staleAfter {
			return r.cached, nil
		}
		// "Stale if unchanged for >1s" forces a re-copy so a resumed
		// game doesn't render a frozen kneeboard, even though the
		// sequence hasn't advanced.
	}

	frame, gotSeq := r.seqlockRead()

	if frame.Header.Magic != HeaderMagic {
		errs.Fatal("shm: corrupt header magic 0x%x", frame.Header.Magic)
	}

	for i := range int(frame.Header.LayerCount) {
		layer := &frame.Layers[i]
		srcHandle := windows.Handle(layer.TextureHandle)
		if _, ok := r.importedTex[srcHandle]; !ok {
			tex, err := r.device.ImportTexture(srcHandle)
			if err != nil {
				return nil, err
			}
			r.importedTex[srcHandle] = tex
		}
	}

	fenceHandle := windows.Handle(frame.Header.FenceHandle)
	fence, ok := r.importedFence[fenceHandle]
	if !ok {
		var err error
		fence, err = r.device.ImportFence(fenceHandle)
		if err != nil {
			return nil, err
		}
		r.importedFence[fenceHandle] = fence
	}

	snap := &Snapshot{Frame: frame, Sequence: gotSeq, observedAt: time.Now()}
	for i := range int(frame.Header.LayerCount) {
		layer := &frame.Layers[i]
		srcHandle := windows.Handle(layer.TextureHandle)
		src := r.importedTex[srcHandle]
		// Gated on waiting for the writer's fence to reach this
		// layer's published value (spec §4.E step 4). The local
		// texture is what a consumer actually renders from.
		local, done, err := r.device.CopyInto(ctx, src, fence, layer.FenceWaitValue)
		if err != nil {
			return nil, err
		}
		r.inFlight = append(r.inFlight, done)
		snap.Locals[i] = local
	}

	r.cached = snap
	r.lastSeq = gotSeq
	r.lastRead = time.Now()

	if broadcast != nil {
		broadcast(clientPID, gotSeq)
	}
	return snap, nil
}

// Close releases all imported handles, waiting for the last in-flight
// copy to complete first (spec §4.E: "must block until the last
// in-flight copy has completed").
func (r *Reader) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, done := range r.inFlight {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	for h, tex := range r.importedTex {
		tex.Release()
		delete(r.importedTex, h)
	}
	errs.Log(windows.UnmapViewOfFile(r.view))
	return windows.CloseHandle(r.mapping)
}
