package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
	"kneeboard.dev/core/pagesource"
)

type fakeTarget struct{ id ids.RenderTargetID }

func (f fakeTarget) ID() ids.RenderTargetID { return f.id }

func TestCachedLayerSkipsDrawOnSecondCallSameKey(t *testing.T) {
	c := NewCachedLayer()
	rc := pagesource.RenderContext{Ctx: context.Background(), Target: fakeTarget{id: ids.NextRenderTargetID()}}
	page := ids.NextPageID()
	size := geom.Size[int]{Width: 64, Height: 64}

	draws := 0
	draw := func(pagesource.RenderContext) error { draws++; return nil }

	require.NoError(t, c.RenderCached(rc, page, size, draw))
	require.NoError(t, c.RenderCached(rc, page, size, draw))

	assert.Equal(t, 1, draws)
	assert.Equal(t, 1, c.Len())
}

func TestCachedLayerRedrawsOnDifferentSize(t *testing.T) {
	c := NewCachedLayer()
	rc := pagesource.RenderContext{Ctx: context.Background(), Target: fakeTarget{id: ids.NextRenderTargetID()}}
	page := ids.NextPageID()

	draws := 0
	draw := func(pagesource.RenderContext) error { draws++; return nil }

	require.NoError(t, c.RenderCached(rc, page, geom.Size[int]{Width: 64, Height: 64}, draw))
	require.NoError(t, c.RenderCached(rc, page, geom.Size[int]{Width: 128, Height: 128}, draw))

	assert.Equal(t, 2, draws)
	assert.Equal(t, 2, c.Len())
}

func TestCachedLayerInvalidateAllForcesRedraw(t *testing.T) {
	c := NewCachedLayer()
	rc := pagesource.RenderContext{Ctx: context.Background(), Target: fakeTarget{id: ids.NextRenderTargetID()}}
	page := ids.NextPageID()
	size := geom.Size[int]{Width: 64, Height: 64}

	draws := 0
	draw := func(pagesource.RenderContext) error { draws++; return nil }

	require.NoError(t, c.RenderCached(rc, page, size, draw))
	c.InvalidateAll()
	require.NoError(t, c.RenderCached(rc, page, size, draw))

	assert.Equal(t, 2, draws)
}

func TestCachedLayerInvalidateTargetOnlyDropsThatTarget(t *testing.T) {
	c := NewCachedLayer()
	size := geom.Size[int]{Width: 64, Height: 64}
	page := ids.NextPageID()
	targetA := fakeTarget{id: ids.NextRenderTargetID()}
	targetB := fakeTarget{id: ids.NextRenderTargetID()}
	noop := func(pagesource.RenderContext) error { return nil }

	require.NoError(t, c.RenderCached(pagesource.RenderContext{Target: targetA}, page, size, noop))
	require.NoError(t, c.RenderCached(pagesource.RenderContext{Target: targetB}, page, size, noop))
	require.Equal(t, 2, c.Len())

	c.InvalidateTarget(targetA.ID())
	assert.Equal(t, 1, c.Len())
}
