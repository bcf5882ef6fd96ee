package pagesource

import "kneeboard.dev/core/eventbus"

// Base implements the three Source events so concrete page sources
// (folder, PDF, text-log, etc. — out of scope per spec §1, but their
// contract lives here) can embed it instead of hand-rolling the
// plumbing.
type Base struct {
	needsRepaint    eventbus.Event[struct{}]
	pageAppended    eventbus.Event[PageAppended]
	contentChanged  eventbus.Event[ContentChanged]
}

func (b *Base) NeedsRepaint() *eventbus.Event[struct{}]          { return &b.needsRepaint }
func (b *Base) PageAppendedEvent() *eventbus.Event[PageAppended] { return &b.pageAppended }
func (b *Base) ContentChangedEvent() *eventbus.Event[ContentChanged] {
	return &b.contentChanged
}
