package kneeboard

import "kneeboard.dev/core/ids"

// Bookmark is {tab_id, page_id, optional title}, stored in the view
// and per-root-tab (spec §3).
type Bookmark struct {
	TabID TabID
	Page  ids.PageID
	Title string
}

// bookmarkList is the ordered set of bookmarks for one view or one
// root tab; mutated only under the app lock and only on the UI thread
// (spec §5).
type bookmarkList struct {
	marks []Bookmark
}

func (l *bookmarkList) indexOf(tab TabID, page ids.PageID) int {
	for i, b := range l.marks {
		if b.TabID == tab && b.Page == page {
			return i
		}
	}
	return -1
}

// Toggle adds a bookmark for (tab, page) if absent, or removes it if
// present.
func (l *bookmarkList) Toggle(tab TabID, page ids.PageID, title string) {
	if i := l.indexOf(tab, page); i >= 0 {
		l.marks = append(l.marks[:i], l.marks[i+1:]...)
		return
	}
	l.marks = append(l.marks, Bookmark{TabID: tab, Page: page, Title: title})
}

// List returns the current bookmarks in insertion order.
func (l *bookmarkList) List() []Bookmark {
	return append([]Bookmark(nil), l.marks...)
}

// Has reports whether (tab, page) is bookmarked.
func (l *bookmarkList) Has(tab TabID, page ids.PageID) bool {
	return l.indexOf(tab, page) >= 0
}

// step moves forward (delta=1) or backward (delta=-1) from (tab,
// page) among the bookmarks, wrapping, and reports the target or
// ok=false if there are no bookmarks.
func (l *bookmarkList) step(tab TabID, page ids.PageID, delta int) (Bookmark, bool) {
	if len(l.marks) == 0 {
		return Bookmark{}, false
	}
	cur := l.indexOf(tab, page)
	var next int
	if cur < 0 {
		next = 0
	} else {
		next = (cur + delta + len(l.marks)) % len(l.marks)
	}
	return l.marks[next], true
}
