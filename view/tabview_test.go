package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kneeboard.dev/core/ids"
	"kneeboard.dev/core/pagesource"
)

// folderSource is a minimal pagesource.Source over a fixed or
// growable list of page IDs, standing in for a real folder-of-images
// source (spec §1 treats PDF/folder/web sources as out-of-scope
// collaborators; only the Source contract matters here).
type folderSource struct {
	pagesource.Base
	pages []ids.PageID
}

func newFolderSource(n int) *folderSource {
	s := &folderSource{}
	for range n {
		s.pages = append(s.pages, ids.NextPageID())
	}
	return s
}

func (s *folderSource) GetPageCount() int          { return len(s.pages) }
func (s *folderSource) GetPageIDs() []ids.PageID    { return append([]ids.PageID(nil), s.pages...) }
func (s *folderSource) GetPreferredSize(id ids.PageID) (pagesource.PreferredSize, bool) {
	return pagesource.PreferredSize{}, true
}
func (s *folderSource) RenderPage(rc pagesource.RenderContext, id ids.PageID) error { return nil }

func (s *folderSource) appendPage() ids.PageID {
	id := ids.NextPageID()
	s.pages = append(s.pages, id)
	s.PageAppendedEvent().Emit(pagesource.PageAppended{Source: s, Page: id})
	return id
}

// TestNavigationBasics is spec scenario S1: a folder source over 3
// pages; NextPage twice lands on index 2; a further NextPage is a
// no-op.
func TestNavigationBasics(t *testing.T) {
	src := newFolderSource(3)
	tv := NewTabView(src)
	defer tv.Close()

	require.Equal(t, 3, src.GetPageCount())
	assert.Equal(t, src.pages[0], tv.CurrentPageID())

	tv.NextPage()
	tv.NextPage()
	assert.Equal(t, src.pages[2], tv.CurrentPageID())

	tv.NextPage()
	assert.Equal(t, src.pages[2], tv.CurrentPageID())
}

// TestTabAppendBehavior is spec scenario S2.
func TestTabAppendBehavior(t *testing.T) {
	src := newFolderSource(2)
	tv := NewTabView(src)
	defer tv.Close()

	require.Equal(t, src.pages[0], tv.CurrentPageID())

	src.appendPage()
	assert.Equal(t, src.pages[0], tv.CurrentPageID(), "appending while not on the last page must not move the view")

	require.True(t, tv.SetPageID(src.pages[len(src.pages)-1]))
	lastBeforeAppend := tv.CurrentPageID()
	require.Equal(t, src.pages[len(src.pages)-1], lastBeforeAppend)

	newLast := src.appendPage()
	assert.Equal(t, newLast, tv.CurrentPageID(), "appending while on the last page must advance to the new page")
}

func TestPreviousPageClampsAtFirst(t *testing.T) {
	src := newFolderSource(3)
	tv := NewTabView(src)
	defer tv.Close()

	tv.PreviousPage()
	assert.Equal(t, src.pages[0], tv.CurrentPageID())
}

func TestSetPageIDRejectsForeignPage(t *testing.T) {
	src := newFolderSource(2)
	tv := NewTabView(src)
	defer tv.Close()

	assert.False(t, tv.SetPageID(ids.NextPageID()))
	assert.Equal(t, src.pages[0], tv.CurrentPageID())
}

func TestContentChangedFallsBackToFirstPageWhenCurrentIsGone(t *testing.T) {
	src := newFolderSource(3)
	tv := NewTabView(src)
	defer tv.Close()

	require.True(t, tv.SetPageID(src.pages[2]))

	// Simulate the root source dropping its old pages and replacing
	// them with an entirely new set.
	src.pages = []ids.PageID{ids.NextPageID(), ids.NextPageID()}
	src.ContentChangedEvent().Emit(pagesource.ContentChanged{Source: src})

	assert.Equal(t, src.pages[0], tv.CurrentPageID())
}

func TestContentChangedKeepsCurrentPageWhenStillPresent(t *testing.T) {
	src := newFolderSource(3)
	tv := NewTabView(src)
	defer tv.Close()

	require.True(t, tv.SetPageID(src.pages[1]))
	src.ContentChangedEvent().Emit(pagesource.ContentChanged{Source: src})
	assert.Equal(t, src.pages[1], tv.CurrentPageID())
}
