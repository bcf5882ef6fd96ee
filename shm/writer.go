package shm

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"kneeboard.dev/core/internal/errs"
)

// regionName / mutexName derive the kernel object names from
// the reverse-domain + protocol version, per spec §6.
func regionName(reverseDomain string) string {
	return fmt.Sprintf(`Local\%s.shm.v%d`, reverseDomain, ProtocolVersion)
}

func mutexName(reverseDomain string) string {
	return fmt.Sprintf(`Local\%s.shm.v%d.mutex`, reverseDomain, ProtocolVersion)
}

// regionSize is sizeof(Header) + MaxViewCount*sizeof(Layer) + slack,
// per spec §4.D.
func regionSize(slack int) int {
	return int(unsafe.Sizeof(Header{})) + MaxViewCount*int(unsafe.Sizeof(Layer{})) + slack
}

// clientSeenEntry is one row of the secondary broadcast region: the
// last sequence number a given client has acknowledged consuming
// (spec §4.D's "correctness preserved because the client's fence wait
// will then observe a newer value" reuse-safety argument).
type clientSeenEntry struct {
	ClientPID   uint32
	LastSeenSeq uint64
}

const maxClients = 32

// Writer publishes frames into the SHM region (spec §4.D).
type Writer struct {
	mu sync.Mutex

	reverseDomain string
	device        Device
	poolSize      int

	mapping   windows.Handle
	view      uintptr
	mutexH    windows.Handle

	pools    [MaxViewCount]*pool
	fence    Fence
	fenceVal atomic.Uint64

	clientSeen [maxClients]clientSeenEntry
	lastSize   IntSize

	feederLUID atomic.Uint64
}

// NewWriter creates (or opens an existing) named SHM region and
// prepares the writer for Publish. device supplies the GPU texture
// pool and timeline fence.
func NewWriter(reverseDomain string, device Device, poolSize, slackBytes int) (*Writer, error) {
	size := regionSize(slackBytes)
	name, err := windows.UTF16PtrFromString(regionName(reverseDomain))
	if err != nil {
		return nil, err
	}
	mapping, err := windows.CreateFileMapping(
		windows.InvalidHandle, // backed by the system paging file
		nil,
		windows.PAGE_READWRITE,
		0, uint32(size),
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("shm: CreateFileMapping: %w", err)
	}
	view, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(mapping)
		return nil, fmt.Errorf("shm: MapViewOfFile: %w", err)
	}

	mname, err := windows.UTF16PtrFromString(mutexName(reverseDomain))
	if err != nil {
		windows.UnmapViewOfFile(view)
		windows.CloseHandle(mapping)
		return nil, err
	}
	mutexH, err := windows.CreateMutex(nil, false, mname)
	if err != nil {
		windows.UnmapViewOfFile(view)
		windows.CloseHandle(mapping)
		return nil, fmt.Errorf("shm: CreateMutex: %w", err)
	}

	fence, err := device.CreateSharedFence()
	if err != nil {
		windows.CloseHandle(mutexH)
		windows.UnmapViewOfFile(view)
		windows.CloseHandle(mapping)
		return nil, err
	}

	w := &Writer{
		reverseDomain: reverseDomain,
		device:        device,
		poolSize:      poolSize,
		mapping:       mapping,
		view:          view,
		mutexH:        mutexH,
		fence:         fence,
	}
	return w, nil
}

// lockRegion acquires the named writer mutex, detecting a crashed
// feeder via WAIT_ABANDONED (spec §5: "allowing detection of a
// crashed feeder").
func (w *Writer) lockRegion() (abandoned bool, err error) {
	event, err := windows.WaitForSingleObject(w.mutexH, windows.INFINITE)
	if err != nil {
		return false, err
	}
	switch event {
	case windows.WAIT_OBJECT_0:
		return false, nil
	case windows.WAIT_ABANDONED:
		return true, nil
	default:
		return false, fmt.Errorf("shm: unexpected wait result %d", event)
	}
}

func (w *Writer) unlockRegion() {
	windows.ReleaseMutex(w.mutexH)
}

// RenderFunc draws the frame's content into the acquired pool texture
// for the given layer index and returns the layer metadata to
// publish. Called once per enabled layer by Publish, per spec §4.D
// step 2 ("callers do the actual drawing against the returned
// target").
type RenderFunc func(layerIndex int, tex GPUTexture) (Layer, error)

// Publish implements the five-step contract of spec §4.D: acquire
// pool slots, render, bump+signal the fence, write layers then
// header, then the sequence number last with release ordering.
func (w *Writer) Publish(ctx context.Context, layerCount int, globalInputLayerID uint64, vr VRSettings, render RenderFunc) error {
	if layerCount > MaxViewCount {
		return fmt.Errorf("shm: layerCount %d exceeds MaxViewCount", layerCount)
	}

	if w.device.Lost() {
		// spec §4.D failure mode: drop the pool, bump feeder_gpu_luid,
		// and reconstruct lazily on this publish.
		for i := range w.pools {
			if w.pools[i] != nil {
				w.pools[i].releaseAll()
				w.pools[i] = nil
			}
		}
		w.feederLUID.Add(1)
	}

	var frame Frame
	for i := range layerCount {
		if w.pools[i] == nil {
			p, err := newPool(w.device, w.lastSize, w.poolSize)
			if err != nil {
				return err
			}
			w.pools[i] = p
		}
		tex, _ := w.pools[i].acquire()
		layer, err := render(i, tex)
		if err != nil {
			return err
		}
		layer.TextureHandle = uintptr(tex.SharedHandle())
		frame.Layers[i] = layer
	}

	next := w.fenceVal.Add(1)
	if err := w.fence.Signal(next); err != nil {
		return errs.Log(fmt.Errorf("shm: signal fence: %w", err))
	}

	abandoned, err := w.lockRegion()
	if err != nil {
		return err
	}
	if abandoned {
		// A previous feeder crashed holding the mutex; the region
		// contents are from that feeder and are safe to overwrite.
		errs.Log(fmt.Errorf("shm: writer mutex was abandoned by a previous feeder"))
	}
	defer w.unlockRegion()

	hdr := Header{
		Magic:              HeaderMagic,
		Version:            ProtocolVersion,
		StructSize:         uint32(unsafe.Sizeof(Header{})),
		FeederPID:          uint32(os.Getpid()),
		FeederTID:          windows.GetCurrentThreadId(),
		FeederLUID:         w.feederLUID.Load(),
		LayerCount:         uint32(layerCount),
		GlobalInputLayerID: globalInputLayerID,
		VR:                 vr,
		FenceHandle:        uintptr(w.fence.SharedHandle()),
		FenceValue:         next,
	}
	frame.Header = hdr

	writeLayers(w.view, frame.Layers[:])
	writeHeaderBody(w.view, hdr)
	// Sequence written last with release ordering: readers spin on
	// this field until it is stable across two reads (seqlock).
	atomic.AddUint64(seqPtr(w.view), 1)
	return nil
}

func seqPtr(view uintptr) *uint64 {
	return (*uint64)(unsafe.Pointer(view + unsafe.Offsetof(Header{}.Sequence)))
}

func writeHeaderBody(view uintptr, hdr Header) {
	base := (*Header)(unsafe.Pointer(view))
	// Copy every field except Sequence, which is bumped separately
	// after this write so the seqlock readers observe it last.
	seq := atomic.LoadUint64(&base.Sequence)
	*base = hdr
	atomic.StoreUint64(&base.Sequence, seq)
}

func writeLayers(view uintptr, layers []Layer) {
	base := view + unsafe.Sizeof(Header{})
	dst := unsafe.Slice((*Layer)(unsafe.Pointer(base)), MaxViewCount)
	copy(dst, layers)
}

// BroadcastSeen records that clientPID last observed lastSeenSeq in a
// table of maxClients rows; when the table is full, the row with the
// lowest sequence is replaced. Publish does not read this table: pool
// slots are handed out round-robin by pool.acquire whatever the
// clients have seen.
func (w *Writer) BroadcastSeen(clientPID uint32, lastSeenSeq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.clientSeen {
		if w.clientSeen[i].ClientPID == clientPID || w.clientSeen[i].ClientPID == 0 {
			w.clientSeen[i] = clientSeenEntry{ClientPID: clientPID, LastSeenSeq: lastSeenSeq}
			return
		}
	}
	// Table full: overwrite the oldest entry.
	oldest := 0
	for i := 1; i < len(w.clientSeen); i++ {
		if w.clientSeen[i].LastSeenSeq < w.clientSeen[oldest].LastSeenSeq {
			oldest = i
		}
	}
	w.clientSeen[oldest] = clientSeenEntry{ClientPID: clientPID, LastSeenSeq: lastSeenSeq}
}

// Close unmaps and closes every handle the writer owns.
func (w *Writer) Close() error {
	for i := range w.pools {
		if w.pools[i] != nil {
			w.pools[i].releaseAll()
		}
	}
	errs.Log(windows.UnmapViewOfFile(w.view))
	errs.Log(windows.CloseHandle(w.mapping))
	return windows.CloseHandle(w.mutexH)
}
