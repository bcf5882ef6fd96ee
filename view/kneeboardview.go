package view

import (
	"context"

	"kneeboard.dev/core/eventbus"
	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
	"kneeboard.dev/core/pagesource"
)

// Metrics is what each UILayer reports so the stack can lay out
// without knowing any other layer's size (spec §4.H).
type Metrics struct {
	PreferredSize geom.Size[int]
	// NextArea is the remaining area left for layers below this one
	// in the stack (e.g. header returns the rect under itself).
	NextArea geom.Rect[int]
	// ContentArea is where this layer actually painted.
	ContentArea geom.Rect[int]
}

// UILayer is one element of a KneeboardView's stack: bookmarks,
// header, footer, or the TabView content itself. Cursor events are
// re-mapped by each layer before being passed to the next (spec
// §4.H).
type UILayer interface {
	// Layout computes this layer's Metrics given the area available
	// from the layer above it in the stack.
	Layout(available geom.Rect[int]) Metrics
	// Render draws the layer into rc.Rect (set to ContentArea by the
	// caller).
	Render(rc pagesource.RenderContext) error
	// RemapCursorEvent translates a cursor event from the coordinate
	// space of the layer above into this layer's own space, or
	// reports ok=false if the event falls outside this layer.
	RemapCursorEvent(ev pagesource.CursorEvent) (out pagesource.CursorEvent, ok bool)
}

// KneeboardView composes the bookmarks/header/footer/content stack
// over one TabView (spec §4.H). Layers are listed top-to-bottom in
// the order they consume area and remap cursor events; Content is
// always present and always last.
type KneeboardView struct {
	id        ids.KneeboardViewID
	Bookmarks UILayer // optional, may be nil
	Header    UILayer // optional, may be nil
	Footer    UILayer // optional, may be nil
	Content   *tabViewLayer

	repaintNeeded eventbus.Event[struct{}]
}

// NewKneeboardView builds a view over tv. Bookmarks/header/footer may
// be left nil to omit that layer, matching the spec's "optional
// vertical bar" / optional mission-time footer.
func NewKneeboardView(tv *TabView) *KneeboardView {
	v := &KneeboardView{id: ids.NextKneeboardViewID(), Content: &tabViewLayer{tv: tv}}
	eventbus.Listen(&v.Content.receiver, tv.PageChangedEvent(), func(PageChanged) {
		v.repaintNeeded.Emit(struct{}{})
	})
	return v
}

func (v *KneeboardView) ID() ids.KneeboardViewID { return v.id }

// TabView returns the view's content TabView, the target of
// kneeboard.State's page/tab navigation dispatch (spec §4.L).
func (v *KneeboardView) TabView() *TabView { return v.Content.tv }

// SetTabView swaps the view's content to tv, detaching the previous
// TabView's PageChanged listener and attaching one to tv. Used by
// kneeboard.State's PreviousTab/NextTab dispatch, which switches
// which root tab a view displays (spec §4.L).
func (v *KneeboardView) SetTabView(tv *TabView) {
	v.Content.receiver.Close()
	v.Content = &tabViewLayer{tv: tv}
	eventbus.Listen(&v.Content.receiver, tv.PageChangedEvent(), func(PageChanged) {
		v.repaintNeeded.Emit(struct{}{})
	})
}

// RepaintNeeded fires whenever any layer's content changed in a way
// that should trigger a fresh composite render.
func (v *KneeboardView) RepaintNeeded() *eventbus.Event[struct{}] {
	return &v.repaintNeeded
}

// layers returns the active stack, top to bottom, content last.
func (v *KneeboardView) layers() []UILayer {
	var out []UILayer
	if v.Bookmarks != nil {
		out = append(out, v.Bookmarks)
	}
	if v.Header != nil {
		out = append(out, v.Header)
	}
	if v.Footer != nil {
		out = append(out, v.Footer)
	}
	out = append(out, v.Content)
	return out
}

// Layout runs each layer's Layout in stack order, each consuming the
// NextArea left by the one above it, and returns the per-layer
// Metrics in the same order.
func (v *KneeboardView) Layout(available geom.Rect[int]) []Metrics {
	metrics := make([]Metrics, 0, 4)
	area := available
	for _, l := range v.layers() {
		m := l.Layout(area)
		metrics = append(metrics, m)
		area = m.NextArea
	}
	return metrics
}

// Render draws every active layer into its ContentArea from the most
// recent Layout call.
func (v *KneeboardView) Render(ctx context.Context, target pagesource.RenderTarget, layout []Metrics) error {
	for i, l := range v.layers() {
		rc := pagesource.RenderContext{Ctx: ctx, Target: target, Rect: layout[i].ContentArea}
		if err := l.Render(rc); err != nil {
			return err
		}
	}
	return nil
}

// DispatchCursorEvent passes ev through each layer's RemapCursorEvent
// in stack order, stopping at the first layer that rejects it.
func (v *KneeboardView) DispatchCursorEvent(ctx context.Context, ev pagesource.CursorEvent) error {
	for _, l := range v.layers() {
		remapped, ok := l.RemapCursorEvent(ev)
		if !ok {
			return nil
		}
		ev = remapped
	}
	return v.Content.postToCurrentPage(ctx, ev)
}

// tabViewLayer is the always-present UILayer that delegates content
// painting and cursor input to the active TabView's current page.
type tabViewLayer struct {
	tv       *TabView
	receiver eventbus.EventReceiver
}

func (l *tabViewLayer) Layout(available geom.Rect[int]) Metrics {
	return Metrics{PreferredSize: available.Size, NextArea: available, ContentArea: available}
}

func (l *tabViewLayer) Render(rc pagesource.RenderContext) error {
	id := l.tv.CurrentPageID()
	if id.IsNull() {
		return nil
	}
	return l.tv.active().RenderPage(rc, id)
}

func (l *tabViewLayer) RemapCursorEvent(ev pagesource.CursorEvent) (pagesource.CursorEvent, bool) {
	return ev, true
}

func (l *tabViewLayer) postToCurrentPage(ctx context.Context, ev pagesource.CursorEvent) error {
	id := l.tv.CurrentPageID()
	if id.IsNull() {
		return nil
	}
	if wc, ok := l.tv.active().(interface {
		PostCursorEvent(context.Context, ids.PageID, pagesource.CursorEvent) error
	}); ok {
		return wc.PostCursorEvent(ctx, id, ev)
	}
	return nil
}
