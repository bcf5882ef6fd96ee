// Package view implements the TabView/KneeboardView layer stack of
// spec §4.H: page-id navigation over a root page source plus an
// optional sub-tab, and the KneeboardView composite that stacks
// bookmarks/header/footer/content layers.
package view

import (
	"sync"

	"kneeboard.dev/core/eventbus"
	"kneeboard.dev/core/ids"
	"kneeboard.dev/core/pagesource"
)

// PageChanged is emitted after every navigation call that finds the
// current page in the active source and after every reaction to the
// root source's PageAppended/ContentChanged, carrying the page current
// afterwards, even when that page did not change.
type PageChanged struct {
	View    *TabView
	PageID  ids.PageID
}

// TabView holds (root_tab, optional sub_tab, current_page_id) and
// exposes PreviousPage/NextPage/SetPageID (spec §4.H).
type TabView struct {
	mu            sync.Mutex
	root          pagesource.Source
	subTab        pagesource.Source // nil if none active
	currentPageID ids.PageID

	pageChanged eventbus.Event[PageChanged]
	receiver    eventbus.EventReceiver
}

// NewTabView builds a TabView over root, starting on root's first
// page if it has one.
func NewTabView(root pagesource.Source) *TabView {
	tv := &TabView{root: root}

	if pages := root.GetPageIDs(); len(pages) > 0 {
		tv.currentPageID = pages[0]
	}

	eventbus.Listen(&tv.receiver, root.PageAppendedEvent(), tv.onPageAppended)
	eventbus.Listen(&tv.receiver, root.ContentChangedEvent(), tv.onContentChanged)

	return tv
}

// active returns whichever source currently governs navigation: the
// sub-tab if one is set, else the root.
func (tv *TabView) active() pagesource.Source {
	if tv.subTab != nil {
		return tv.subTab
	}
	return tv.root
}

// onPageAppended implements spec §4.H: "On evPageAppended from the
// root tab: if the user was on the last page, advance; otherwise
// stay." This only reacts to the root source, matching the spec's
// wording, even when a sub-tab is active.
func (tv *TabView) onPageAppended(ev pagesource.PageAppended) {
	tv.mu.Lock()
	pages := tv.root.GetPageIDs()
	wasOnLast := len(pages) >= 2 && tv.currentPageID == pages[len(pages)-2]
	if wasOnLast {
		tv.currentPageID = ev.Page
	}
	changed := tv.currentPageID
	tv.mu.Unlock()

	tv.pageChanged.Emit(PageChanged{View: tv, PageID: changed})
}

// onContentChanged implements spec §4.H: "On evContentChanged: if
// current page is still present, keep it; otherwise fall back to the
// first page."
func (tv *TabView) onContentChanged(pagesource.ContentChanged) {
	tv.mu.Lock()
	pages := tv.active().GetPageIDs()
	stillPresent := false
	for _, id := range pages {
		if id == tv.currentPageID {
			stillPresent = true
			break
		}
	}
	if !stillPresent && len(pages) > 0 {
		tv.currentPageID = pages[0]
	}
	changed := tv.currentPageID
	tv.mu.Unlock()

	tv.pageChanged.Emit(PageChanged{View: tv, PageID: changed})
}

// CurrentPageID returns the page currently displayed.
func (tv *TabView) CurrentPageID() ids.PageID {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return tv.currentPageID
}

// SetPageID moves to id if it belongs to the active source; returns
// false (and leaves the current page unchanged) otherwise.
func (tv *TabView) SetPageID(id ids.PageID) bool {
	tv.mu.Lock()
	found := false
	for _, candidate := range tv.active().GetPageIDs() {
		if candidate == id {
			tv.currentPageID = id
			found = true
			break
		}
	}
	tv.mu.Unlock()

	if found {
		tv.pageChanged.Emit(PageChanged{View: tv, PageID: id})
	}
	return found
}

// NextPage advances to the next page of the active source, clamped at
// the last page (spec scenario S1: repeated NextPage past the end is
// a no-op).
func (tv *TabView) NextPage() {
	tv.step(1)
}

// PreviousPage moves to the previous page of the active source,
// clamped at the first page.
func (tv *TabView) PreviousPage() {
	tv.step(-1)
}

func (tv *TabView) step(delta int) {
	tv.mu.Lock()
	pages := tv.active().GetPageIDs()
	idx := tv.indexOfLocked(pages)
	if idx < 0 {
		tv.mu.Unlock()
		return
	}
	next := idx + delta
	if next < 0 {
		next = 0
	}
	if next >= len(pages) {
		next = len(pages) - 1
	}
	changed := pages[next]
	tv.currentPageID = changed
	tv.mu.Unlock()

	tv.pageChanged.Emit(PageChanged{View: tv, PageID: changed})
}

func (tv *TabView) indexOfLocked(pages []ids.PageID) int {
	for i, id := range pages {
		if id == tv.currentPageID {
			return i
		}
	}
	return -1
}

// PageChangedEvent lets consumers (KneeboardView's header, the
// repaint scheduler) react to navigation.
func (tv *TabView) PageChangedEvent() *eventbus.Event[PageChanged] {
	return &tv.pageChanged
}

// Close removes this view's listeners from its root source.
func (tv *TabView) Close() {
	tv.receiver.Close()
}
