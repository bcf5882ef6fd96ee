package input

import (
	"kneeboard.dev/core/eventbus"
	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/pagesource"
)

// WintabPacket is one decoded WT_PACKET/WT_PACKETEXT sample, the
// shape Wintab posts to the foreground window's WndProc (spec §4.K).
// Coordinates are in the tablet's native orientation, before the 90°
// clockwise rotation this adapter applies.
type WintabPacket struct {
	X, Y     int32
	Pressure float32 // normalized 0..1
	Buttons  uint32  // bit 0: tip; any other bit: a side/eraser button
}

// TabletInputAdapter rotates Wintab tablet coordinates 90° clockwise
// (matching the physical mounting this application assumes), then
// scales them from tablet-native space to canvas space and finally to
// content-native coordinates, emitting a pagesource.CursorEvent per
// packet (spec §4.K). Pen button 1 (bit 0) means "touching surface";
// any other nonzero button means "near surface" rather than touching.
type TabletInputAdapter struct {
	tabletSize  geom.Size[float32] // native tablet reporting area
	canvasSize  geom.Size[int]
	contentSize geom.Size[int]

	cursorEvent eventbus.Event[pagesource.CursorEvent]
}

// NewTabletInputAdapter builds an adapter for a tablet reporting area
// of tabletSize, mapped first into canvasSize then into contentSize.
func NewTabletInputAdapter(tabletSize geom.Size[float32], canvasSize, contentSize geom.Size[int]) *TabletInputAdapter {
	return &TabletInputAdapter{tabletSize: tabletSize, canvasSize: canvasSize, contentSize: contentSize}
}

// CursorEvent lets callers subscribe to translated cursor events.
func (t *TabletInputAdapter) CursorEvent() *eventbus.Event[pagesource.CursorEvent] {
	return &t.cursorEvent
}

// SetGeometry updates the canvas/content sizes used for scaling,
// e.g. after a window resize or a page change.
func (t *TabletInputAdapter) SetGeometry(canvasSize, contentSize geom.Size[int]) {
	t.canvasSize = canvasSize
	t.contentSize = contentSize
}

// touchState classifies a Wintab button mask per spec §4.K: bit 0 is
// "touching surface"; any other nonzero bit (with bit 0 clear) is
// "near surface"; zero is "not touching".
func touchState(buttons uint32) pagesource.CursorTouchState {
	switch {
	case buttons&0x1 != 0:
		return pagesource.CursorTouching
	case buttons != 0:
		return pagesource.CursorNearSurface
	default:
		return pagesource.CursorNotTouching
	}
}

// rotate90CW rotates a point 90° clockwise within a w x h native
// reporting area: (x, y) -> (h - y, x).
func rotate90CW(x, y, w, h float32) (rx, ry float32) {
	return h - y, x
}

// HandlePacket rotates, rescales, and republishes one Wintab packet
// as a pagesource.CursorEvent (spec §4.K).
func (t *TabletInputAdapter) HandlePacket(p WintabPacket) {
	rx, ry := rotate90CW(float32(p.X), float32(p.Y), t.tabletSize.Width, t.tabletSize.Height)

	// Rotating swaps which tablet axis maps to canvas width/height.
	rotatedArea := geom.Size[float32]{Width: t.tabletSize.Height, Height: t.tabletSize.Width}

	canvasX := rx / rotatedArea.Width * float32(t.canvasSize.Width)
	canvasY := ry / rotatedArea.Height * float32(t.canvasSize.Height)

	var contentX, contentY float32
	if t.canvasSize.Width != 0 && t.canvasSize.Height != 0 {
		contentX = canvasX / float32(t.canvasSize.Width) * float32(t.contentSize.Width)
		contentY = canvasY / float32(t.canvasSize.Height) * float32(t.contentSize.Height)
	}

	ev := pagesource.CursorEvent{
		TouchState: touchState(p.Buttons),
		Position:   geom.Point[float32]{X: contentX, Y: contentY},
		Pressure:   p.Pressure,
		Buttons:    p.Buttons,
	}
	t.cursorEvent.Emit(ev)
}
