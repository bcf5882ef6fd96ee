package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kneeboard.dev/core/geom"
)

func TestRenderTargetStartsUnattached(t *testing.T) {
	rt := NewRenderTarget(nil, geom.Size[int]{Width: 100, Height: 100})
	assert.False(t, rt.Attached())
	assert.False(t, rt.ID().IsNull())
}

func TestRenderTargetD2DRoundTrip(t *testing.T) {
	rt := NewRenderTarget(nil, geom.Size[int]{Width: 100, Height: 100})
	ctx := rt.AcquireD2D()
	require.True(t, rt.Attached())
	rt.ReleaseD2D(ctx)
	assert.False(t, rt.Attached())
}

func TestRenderTargetDoubleAcquirePanics(t *testing.T) {
	rt := NewRenderTarget(nil, geom.Size[int]{Width: 100, Height: 100})
	rt.AcquireD2D()
	assert.Panics(t, func() { rt.AcquireD2D() })
}

func TestRenderTargetReleaseWhileUnattachedPanics(t *testing.T) {
	rt := NewRenderTarget(nil, geom.Size[int]{Width: 100, Height: 100})
	assert.Panics(t, func() { rt.ReleaseD3D() })
}

func TestRenderTargetReleaseWrongAPIPanics(t *testing.T) {
	rt := NewRenderTarget(nil, geom.Size[int]{Width: 100, Height: 100})
	rt.AcquireD2D()
	assert.Panics(t, func() { rt.ReleaseD3D() })
}

func TestRenderTargetResizeWhileAttachedPanics(t *testing.T) {
	rt := NewRenderTarget(nil, geom.Size[int]{Width: 100, Height: 100})
	rt.AcquireD2D()
	assert.Panics(t, func() { rt.Resize(geom.Size[int]{Width: 200, Height: 200}) })
}

func TestRenderTargetResizeWhileUnattachedSucceeds(t *testing.T) {
	rt := NewRenderTarget(nil, geom.Size[int]{Width: 100, Height: 100})
	rt.Resize(geom.Size[int]{Width: 200, Height: 50})
	assert.Equal(t, geom.Size[int]{Width: 200, Height: 50}, rt.Size())
}

func TestRenderTargetAcquireD3DWithoutResourcesSucceedsWithNilTexture(t *testing.T) {
	rt := NewRenderTarget(nil, geom.Size[int]{Width: 100, Height: 100})
	tex, err := rt.AcquireD3D()
	require.NoError(t, err)
	assert.Nil(t, tex)
	assert.True(t, rt.Attached())
}
