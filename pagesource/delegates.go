package pagesource

import (
	"context"
	"fmt"
	"sync"

	"kneeboard.dev/core/eventbus"
	"kneeboard.dev/core/ids"
)

// WithDelegates is the reusable composite of spec §4.G: it owns
// zero-or-more child delegates, concatenates their page lists,
// maintains a page-id -> delegate index rebuilt on ContentChanged,
// and provides the cursor-event-to-doodle and render-to-cache
// fallback behavior for delegates that don't implement the relevant
// capability mixin.
type WithDelegates struct {
	Base

	mu        sync.RWMutex
	delegates []Source
	index     map[ids.PageID]Source

	doodle *DoodleRenderer
	cache  Cache

	receiver eventbus.EventReceiver
}

// NewWithDelegates builds a composite over the given delegates. cache
// may be nil (no external caching applied, e.g. in tests); doodle may
// be nil if no delegate needs cursor-event fallback.
func NewWithDelegates(delegates []Source, cache Cache, doodle *DoodleRenderer) *WithDelegates {
	d := &WithDelegates{delegates: delegates, cache: cache, doodle: doodle}
	for _, child := range delegates {
		child := child
		eventbus.Listen(&d.receiver, child.ContentChangedEvent(), func(ContentChanged) {
			d.rebuildIndex()
			if d.cache != nil {
				d.cache.InvalidateAll()
			}
			d.ContentChangedEvent().Emit(ContentChanged{Source: d})
		})
		eventbus.Listen(&d.receiver, child.NeedsRepaint(), func(struct{}) {
			d.NeedsRepaint().Emit(struct{}{})
		})
		eventbus.Listen(&d.receiver, child.PageAppendedEvent(), func(ev PageAppended) {
			d.rebuildIndex()
			d.PageAppendedEvent().Emit(PageAppended{Source: d, Page: ev.Page})
		})
	}
	d.rebuildIndex()
	return d
}

func (d *WithDelegates) rebuildIndex() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.index = make(map[ids.PageID]Source)
	for _, child := range d.delegates {
		for _, id := range child.GetPageIDs() {
			d.index[id] = child
		}
	}
}

// GetPageCount sums the delegates' page counts.
func (d *WithDelegates) GetPageCount() int {
	return len(d.GetPageIDs())
}

// GetPageIDs concatenates each delegate's page IDs in delegate order.
func (d *WithDelegates) GetPageIDs() []ids.PageID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []ids.PageID
	for _, child := range d.delegates {
		out = append(out, child.GetPageIDs()...)
	}
	return out
}

func (d *WithDelegates) delegateFor(id ids.PageID) (Source, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	child, ok := d.index[id]
	return child, ok
}

func (d *WithDelegates) GetPreferredSize(id ids.PageID) (PreferredSize, bool) {
	child, ok := d.delegateFor(id)
	if !ok {
		return PreferredSize{}, false
	}
	return child.GetPreferredSize(id)
}

// RenderPage dispatches to the owning delegate, wrapping the draw in
// the external Cache unless the delegate implements
// WithInternalCaching and reports true.
func (d *WithDelegates) RenderPage(rc RenderContext, id ids.PageID) error {
	child, ok := d.delegateFor(id)
	if !ok {
		return fmt.Errorf("pagesource: no delegate owns page %d", id)
	}

	draw := func(rc RenderContext) error { return child.RenderPage(rc, id) }

	if wic, ok := child.(WithInternalCaching); ok && wic.HasInternalCaching() {
		if err := draw(rc); err != nil {
			return err
		}
	} else if d.cache != nil {
		size := rc.Rect.Size
		if err := d.cache.RenderCached(rc, id, size, draw); err != nil {
			return err
		}
	} else {
		if err := draw(rc); err != nil {
			return err
		}
	}

	if d.doodle != nil {
		return d.doodle.Flush(rc, id)
	}
	return nil
}

// PostCursorEvent forwards to the owning delegate if it implements
// WithCursorEvents, otherwise buffers the event on the internal
// DoodleRenderer (spec §4.G).
func (d *WithDelegates) PostCursorEvent(ctx context.Context, id ids.PageID, ev CursorEvent) error {
	child, ok := d.delegateFor(id)
	if !ok {
		return fmt.Errorf("pagesource: no delegate owns page %d", id)
	}
	if wc, ok := child.(WithCursorEvents); ok {
		return wc.PostCursorEvent(ctx, id, ev)
	}
	if d.doodle != nil {
		d.doodle.PostCursorEvent(id, ev)
	}
	return nil
}

// Close removes every listener this composite registered on its
// delegates, per spec §4.B's "destroying a receiver mid-emit cleanly
// removes its handlers".
func (d *WithDelegates) Close() {
	d.receiver.Close()
}
