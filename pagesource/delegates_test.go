package pagesource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kneeboard.dev/core/eventbus"
	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
)

// fakeSource is a minimal Source with no optional mixins, used to
// exercise WithDelegates' fallback paths.
type fakeSource struct {
	Base
	pages      []ids.PageID
	rendered   []ids.PageID
	cursorErr  error
	cursorSeen []ids.PageID
}

func newFakeSource(n int) *fakeSource {
	s := &fakeSource{}
	for range n {
		s.pages = append(s.pages, ids.NextPageID())
	}
	return s
}

func (s *fakeSource) GetPageCount() int { return len(s.pages) }
func (s *fakeSource) GetPageIDs() []ids.PageID {
	return append([]ids.PageID(nil), s.pages...)
}
func (s *fakeSource) GetPreferredSize(id ids.PageID) (PreferredSize, bool) {
	return PreferredSize{PixelSize: geom.Size[int]{Width: 100, Height: 200}}, true
}
func (s *fakeSource) RenderPage(rc RenderContext, id ids.PageID) error {
	s.rendered = append(s.rendered, id)
	return nil
}
func (s *fakeSource) appendPage() ids.PageID {
	id := ids.NextPageID()
	s.pages = append(s.pages, id)
	s.PageAppendedEvent().Emit(PageAppended{Source: s, Page: id})
	return id
}

// cursorSource additionally implements WithCursorEvents, so
// WithDelegates should forward to it instead of the DoodleRenderer.
type cursorSource struct {
	fakeSource
}

func (s *cursorSource) PostCursorEvent(ctx context.Context, id ids.PageID, ev CursorEvent) error {
	s.cursorSeen = append(s.cursorSeen, id)
	return nil
}
func (s *cursorSource) ClearUserInput(id ids.PageID) error { return nil }
func (s *cursorSource) CanClearUserInput(id ids.PageID) bool { return true }

type countingCache struct {
	renders     int
	invalidated int
}

func (c *countingCache) RenderCached(rc RenderContext, page ids.PageID, size geom.Size[int], draw func(RenderContext) error) error {
	c.renders++
	return draw(rc)
}
func (c *countingCache) InvalidateAll() { c.invalidated++ }

func TestWithDelegatesConcatenatesPageIDsInOrder(t *testing.T) {
	a := newFakeSource(2)
	b := newFakeSource(3)
	d := NewWithDelegates([]Source{a, b}, nil, nil)
	defer d.Close()

	assert.Equal(t, 5, d.GetPageCount())
	want := append(append([]ids.PageID(nil), a.pages...), b.pages...)
	assert.Equal(t, want, d.GetPageIDs())
}

func TestWithDelegatesBubblesContentChangedAndInvalidatesCache(t *testing.T) {
	a := newFakeSource(1)
	cache := &countingCache{}
	d := NewWithDelegates([]Source{a}, cache, nil)
	defer d.Close()

	var got []ContentChanged
	var rcv eventbus.EventReceiver
	eventbus.Listen(&rcv, d.ContentChangedEvent(), func(ev ContentChanged) {
		got = append(got, ev)
	})
	defer rcv.Close()

	a.ContentChangedEvent().Emit(ContentChanged{Source: a})

	require.Len(t, got, 1)
	assert.Equal(t, d, got[0].Source)
	assert.Equal(t, 1, cache.invalidated)
}

func TestWithDelegatesRebuildsIndexOnPageAppended(t *testing.T) {
	a := newFakeSource(1)
	d := NewWithDelegates([]Source{a}, nil, nil)
	defer d.Close()

	require.Equal(t, 1, d.GetPageCount())
	newID := a.appendPage()
	assert.Equal(t, 2, d.GetPageCount())

	rc := RenderContext{}
	require.NoError(t, d.RenderPage(rc, newID))
	assert.Contains(t, a.rendered, newID)
}

func TestWithDelegatesWrapsRenderInCacheByDefault(t *testing.T) {
	a := newFakeSource(1)
	cache := &countingCache{}
	d := NewWithDelegates([]Source{a}, cache, nil)
	defer d.Close()

	require.NoError(t, d.RenderPage(RenderContext{}, a.pages[0]))
	assert.Equal(t, 1, cache.renders)
	assert.Contains(t, a.rendered, a.pages[0])
}

func TestWithDelegatesForwardsCursorEventsToDelegateThatSupportsThem(t *testing.T) {
	cs := &cursorSource{fakeSource: *newFakeSource(1)}
	d := NewWithDelegates([]Source{cs}, nil, nil)
	defer d.Close()

	require.NoError(t, d.PostCursorEvent(context.Background(), cs.pages[0], CursorEvent{}))
	assert.Contains(t, cs.cursorSeen, cs.pages[0])
}

func TestWithDelegatesFallsBackToDoodleRendererWithoutCursorMixin(t *testing.T) {
	a := newFakeSource(1)
	doodle := NewDoodleRenderer(func(size geom.Size[int]) (Bitmap, error) {
		return &fakeBitmap{size: size}, nil
	})
	d := NewWithDelegates([]Source{a}, nil, doodle)
	defer d.Close()

	id := a.pages[0]
	require.NoError(t, d.PostCursorEvent(context.Background(), id, CursorEvent{TouchState: CursorTouching, Position: geom.Point[float32]{X: 1, Y: 1}}))
	require.NoError(t, d.PostCursorEvent(context.Background(), id, CursorEvent{TouchState: CursorTouching, Position: geom.Point[float32]{X: 2, Y: 2}}))
	require.NoError(t, d.RenderPage(RenderContext{}, id))

	assert.True(t, doodle.HaveDoodles(id))
}
