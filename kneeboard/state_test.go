package kneeboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
	"kneeboard.dev/core/pagesource"
)

// fakeSource is a minimal pagesource.Source with a fixed page count,
// enough for State's navigation dispatch tests.
type fakeSource struct {
	pagesource.Base
	pages []ids.PageID
}

func newFakeSource(n int) *fakeSource {
	s := &fakeSource{}
	for range n {
		s.pages = append(s.pages, ids.NextPageID())
	}
	return s
}

func (s *fakeSource) GetPageCount() int           { return len(s.pages) }
func (s *fakeSource) GetPageIDs() []ids.PageID     { return append([]ids.PageID(nil), s.pages...) }
func (s *fakeSource) GetPreferredSize(ids.PageID) (pagesource.PreferredSize, bool) {
	return pagesource.PreferredSize{PixelSize: geom.Size[int]{Width: 100, Height: 100}}, true
}
func (s *fakeSource) RenderPage(pagesource.RenderContext, ids.PageID) error { return nil }

func newTestState(pageCounts ...int) *State {
	var tabs []*Tab
	for i, n := range pageCounts {
		tabs = append(tabs, NewTab(tabNameFor(i), newFakeSource(n)))
	}
	return NewState(tabs, "default")
}

func tabNameFor(i int) string {
	return []string{"Tab A", "Tab B", "Tab C"}[i]
}

func TestDispatchNextPreviousPage(t *testing.T) {
	s := newTestState(3)
	ctx := context.Background()

	tv := s.ActiveView().TabView()
	first := tv.CurrentPageID()

	s.Dispatch(ctx, NextPage)
	s.Dispatch(ctx, NextPage)
	assert.NotEqual(t, first, tv.CurrentPageID())

	// Clamped at the last page.
	last := tv.CurrentPageID()
	s.Dispatch(ctx, NextPage)
	assert.Equal(t, last, tv.CurrentPageID())
}

func TestDispatchNextTabSwitchesRoot(t *testing.T) {
	s := newTestState(2, 3)
	ctx := context.Background()

	tabAPages := s.Tabs()[0].Source.GetPageIDs()
	assert.Contains(t, tabAPages, s.ActiveView().TabView().CurrentPageID())

	s.Dispatch(ctx, NextTab)

	tabBPages := s.Tabs()[1].Source.GetPageIDs()
	assert.Contains(t, tabBPages, s.ActiveView().TabView().CurrentPageID())
}

func TestDispatchToggleVisibility(t *testing.T) {
	s := newTestState(1)
	ctx := context.Background()
	require.True(t, s.Visible())
	s.Dispatch(ctx, ToggleVisibility)
	assert.False(t, s.Visible())
	s.Dispatch(ctx, Hide)
	assert.False(t, s.Visible())
	s.Dispatch(ctx, Show)
	assert.True(t, s.Visible())
}

func TestDispatchBrightness(t *testing.T) {
	s := newTestState(1)
	ctx := context.Background()
	require.InDelta(t, 1.0, s.Brightness(), 1e-9)
	s.Dispatch(ctx, DecreaseBrightness)
	assert.InDelta(t, 0.9, s.Brightness(), 1e-9)
	s.SetBrightness(0.5, BrightnessRelative)
	assert.InDelta(t, 1.0, s.Brightness(), 1e-9) // clamped
}

func TestDispatchToggleBookmarkAndNavigate(t *testing.T) {
	s := newTestState(3)
	ctx := context.Background()
	tv := s.ActiveView().TabView()
	pages := s.Tabs()[0].Source.GetPageIDs()

	tv.SetPageID(pages[0])
	s.Dispatch(ctx, ToggleBookmark)
	tv.SetPageID(pages[2])
	s.Dispatch(ctx, ToggleBookmark)

	marks := s.Bookmarks(0)
	require.Len(t, marks, 2)

	s.Dispatch(ctx, PreviousBookmark)
	assert.Equal(t, pages[0], tv.CurrentPageID())
}

func TestRepaintFlag(t *testing.T) {
	s := newTestState(1)
	ctx := context.Background()
	assert.False(t, s.IsRepaintNeeded())
	s.Dispatch(ctx, RepaintNow)
	assert.True(t, s.IsRepaintNeeded())
	s.Repainted()
	assert.False(t, s.IsRepaintNeeded())
}

func TestSwitchProfileEmitsEvent(t *testing.T) {
	s := newTestState(1)
	var got []ProfileChanged
	s.CurrentProfileChanged().AddHandler(nil, func(ev ProfileChanged) { got = append(got, ev) })

	newTabs := []*Tab{NewTab("New", newFakeSource(1))}
	s.SwitchProfile("profile-2", newTabs)

	require.Len(t, got, 1)
	assert.Equal(t, "profile-2", got[0].Profile)
	assert.Equal(t, "profile-2", s.CurrentProfile())
}
