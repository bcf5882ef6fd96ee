package pagesource

import (
	"sync"

	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
)

// MaxViewRenderSize bounds the lazily-allocated doodle bitmap so a
// huge source page doesn't blow up GPU memory (spec §4.G).
var MaxViewRenderSize = geom.Size[int]{Width: 2048, Height: 2048}

// Bitmap is the minimal GPU-backed surface a DoodleRenderer draws
// strokes into. Implemented by the renderer; kept as a tiny interface
// here so pagesource never imports render.
type Bitmap interface {
	Size() geom.Size[int]
	// DrawStroke draws a line segment from -> to. erase selects the
	// Copy blend mode so erasing truly clears pixels, including
	// antialiasing from the original stroke (spec §4.G).
	DrawStroke(from, to geom.Point[float32], erase bool) error
}

// BitmapFactory lazily allocates a page's doodle bitmap at the given
// pixel size.
type BitmapFactory func(size geom.Size[int]) (Bitmap, error)

// bufferedEvent is one not-yet-flushed cursor sample.
type bufferedEvent struct {
	ev CursorEvent
}

// doodlePage is the per-page state of spec §3's DoodlePage.
type doodlePage struct {
	nativeSize geom.Size[int]
	scale      float32
	bitmap     Bitmap
	buffered   []bufferedEvent
	cursorAt   *geom.Point[float32]
	cursorDown bool
	hasInk     bool
}

func (p *doodlePage) hasDoodles() bool {
	return p.hasInk || len(p.buffered) > 0
}

// DoodleRenderer maps PageID -> DoodlePage (spec §3/§4.G): it buffers
// cursor events per page and flushes them lazily on the next paint
// into a page-sized GPU bitmap.
type DoodleRenderer struct {
	mu      sync.Mutex
	pages   map[ids.PageID]*doodlePage
	factory BitmapFactory
}

// NewDoodleRenderer builds a renderer that lazily allocates bitmaps
// via factory.
func NewDoodleRenderer(factory BitmapFactory) *DoodleRenderer {
	return &DoodleRenderer{pages: make(map[ids.PageID]*doodlePage), factory: factory}
}

// SetNativeSize records a page's native size so its bitmap can be
// allocated at nativeSize.ScaledToFit(MaxViewRenderSize).
func (d *DoodleRenderer) SetNativeSize(id ids.PageID, nativeSize geom.Size[int]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.pageLocked(id)
	p.nativeSize = nativeSize
}

func (d *DoodleRenderer) pageLocked(id ids.PageID) *doodlePage {
	p, ok := d.pages[id]
	if !ok {
		p = &doodlePage{}
		d.pages[id] = p
	}
	return p
}

// penButtonTip is bit 0; any other non-zero bit means "erase mode"
// (spec §4.G: "Erase mode is any pen-button bit other than the tip").
const penButtonTip = 1 << 0

// isEraseButtons reports whether buttons indicates erase mode.
func isEraseButtons(buttons uint32) bool {
	return buttons&^penButtonTip != 0
}

// PostCursorEvent buffers ev for page id; it is not drawn until the
// next Flush.
func (d *DoodleRenderer) PostCursorEvent(id ids.PageID, ev CursorEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.pageLocked(id)
	p.buffered = append(p.buffered, bufferedEvent{ev: ev})
	if ev.TouchState == CursorTouching {
		pos := ev.Position
		p.cursorAt = &pos
		p.cursorDown = true
	} else {
		p.cursorAt = nil
		p.cursorDown = false
	}
}

// Flush lazily allocates the page bitmap if needed and draws every
// buffered stroke segment since the last Flush.
func (d *DoodleRenderer) Flush(rc RenderContext, id ids.PageID) error {
	d.mu.Lock()
	p := d.pageLocked(id)
	events := p.buffered
	p.buffered = nil
	if p.bitmap == nil && len(events) > 0 {
		size := geom.ScaledToFit(p.nativeSize, MaxViewRenderSize, geom.ShrinkOrGrow)
		if size.IsEmpty() {
			size = MaxViewRenderSize
		}
		bmp, err := d.factory(size)
		if err != nil {
			d.mu.Unlock()
			return err
		}
		p.bitmap = bmp
	}
	bitmap := p.bitmap
	d.mu.Unlock()

	if bitmap == nil {
		return nil
	}

	var prev *geom.Point[float32]
	for _, be := range events {
		if be.ev.TouchState == CursorNotTouching {
			prev = nil
			continue
		}
		pos := be.ev.Position
		if prev != nil {
			if err := bitmap.DrawStroke(*prev, pos, isEraseButtons(be.ev.Buttons)); err != nil {
				return err
			}
			d.mu.Lock()
			p.hasInk = true
			d.mu.Unlock()
		}
		prev = &pos
	}
	return nil
}

// HaveDoodles reports whether page id has ink drawn by a Flush or
// cursor events buffered for the next Flush (spec §8 invariant 6:
// false for every page right after Clear).
func (d *DoodleRenderer) HaveDoodles(id ids.PageID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pages[id]
	return ok && p.hasDoodles()
}

// ClearPage discards page id's doodles, buffered events, and bitmap.
func (d *DoodleRenderer) ClearPage(id ids.PageID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pages, id)
}

// Clear discards every page's doodles (spec §8 invariant 6).
func (d *DoodleRenderer) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages = make(map[ids.PageID]*doodlePage)
}
