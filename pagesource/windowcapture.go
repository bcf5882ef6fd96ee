package pagesource

import (
	"context"
	"fmt"
	"sync"

	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
)

// WindowCaptureOptions mirrors the original's WGCRenderer::Options:
// whether the capture session asks for the Windows 11 borderless
// capture mode, and whether the OS cursor is composited into frames.
type WindowCaptureOptions struct {
	CaptureCursor         bool
	BorderlessIfSupported bool
}

// CapturedFrame is one frame delivered by a Capturer. Native carries
// whatever GPU-specific handle the real Windows Graphics Capture
// backend produced (a duplicated D3D11 texture in production); kept
// opaque here so this package has no Direct3D dependency, the same
// way Bitmap keeps DoodleRenderer free of one.
type CapturedFrame struct {
	Size   geom.Size[int]
	Native any
}

// Capturer is the platform-specific live window mirror, grounded on
// WGCRenderer.cpp's GraphicsCaptureSession/Direct3D11CaptureFramePool
// pairing: Frames starts (or resumes) the capture session and
// delivers every captured frame on the returned channel until ctx is
// done or Close is called.
type Capturer interface {
	Frames(ctx context.Context) (<-chan CapturedFrame, error)
	Close() error
}

// CaptureSurface is the minimal GPU-backed destination a captured
// frame is blitted into, hiding the real D3D11 CopyResource call the
// same way doodle.Bitmap hides ink-stroke drawing.
type CaptureSurface interface {
	Size() geom.Size[int]
	BlitFrame(frame CapturedFrame) error
}

// SurfaceFactory lazily (re)allocates the surface a captured window
// is blitted into, at the frame's pixel size.
type SurfaceFactory func(size geom.Size[int]) (CaptureSurface, error)

// WindowCapture is a single-page Source that mirrors a live top-level
// window (spec.md §1: "live window captures"), grounded on
// WGCRenderer.cpp. Unlike a paged document, every consumer shares the
// same mirrored surface — the original feeds one WGC frame pool into
// one swapchain regardless of how many VR layers display it — so this
// source keeps one CaptureSurface rather than one per RenderTargetID.
type WindowCapture struct {
	Base

	opts           WindowCaptureOptions
	capturer       Capturer
	surfaceFactory SurfaceFactory
	pageID         ids.PageID

	mu        sync.Mutex
	surface   CaptureSurface
	lastSize  geom.Size[int]
	lastFrame CapturedFrame

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWindowCapture builds a capture source over capturer, lazily
// allocating its blit surface via surfaceFactory. Call Start before
// the source's RenderPage produces anything.
func NewWindowCapture(capturer Capturer, surfaceFactory SurfaceFactory, opts WindowCaptureOptions) *WindowCapture {
	return &WindowCapture{
		opts:           opts,
		capturer:       capturer,
		surfaceFactory: surfaceFactory,
		pageID:         ids.NextPageID(),
	}
}

// Start begins consuming captured frames until ctx is cancelled,
// mirroring WGCRenderer::Init's frame-pool consumption loop.
func (w *WindowCapture) Start(ctx context.Context) error {
	frames, err := w.capturer.Frames(ctx)
	if err != nil {
		return fmt.Errorf("pagesource: start window capture: %w", err)
	}
	listenCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.consume(listenCtx, frames)
	return nil
}

func (w *WindowCapture) consume(ctx context.Context, frames <-chan CapturedFrame) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			w.mu.Lock()
			w.lastFrame = frame
			sizeChanged := frame.Size != w.lastSize
			w.lastSize = frame.Size
			w.mu.Unlock()

			if sizeChanged {
				w.ContentChangedEvent().Emit(ContentChanged{Source: w})
			}
			w.NeedsRepaint().Emit(struct{}{})
		}
	}
}

// Close stops the capture session and releases the underlying
// Capturer.
func (w *WindowCapture) Close() error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	return w.capturer.Close()
}

func (w *WindowCapture) GetPageCount() int { return 1 }

func (w *WindowCapture) GetPageIDs() []ids.PageID { return []ids.PageID{w.pageID} }

func (w *WindowCapture) GetPreferredSize(id ids.PageID) (PreferredSize, bool) {
	if id != w.pageID {
		return PreferredSize{}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return PreferredSize{PixelSize: w.lastSize, ScalingKind: ScaleToFit}, true
}

// HasInternalCaching opts this source out of the external CachedLayer
// wrapping: a cached blit of a live window would freeze it, the exact
// staleness CachedLayer is meant to avoid for everything else.
func (w *WindowCapture) HasInternalCaching() bool { return true }

// RenderPage blits the most recently captured frame into this
// source's shared surface, (re)allocating it if the captured size
// changed. A RenderPage call before any frame has arrived is a no-op.
func (w *WindowCapture) RenderPage(rc RenderContext, id ids.PageID) error {
	if id != w.pageID {
		return fmt.Errorf("pagesource: window capture has no page %d", id)
	}

	w.mu.Lock()
	frame := w.lastFrame
	w.mu.Unlock()
	if frame.Size.Width == 0 || frame.Size.Height == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.surface == nil || w.surface.Size() != frame.Size {
		surf, err := w.surfaceFactory(frame.Size)
		if err != nil {
			return err
		}
		w.surface = surf
	}
	return w.surface.BlitFrame(frame)
}
