package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaledToFitPreservesAspect(t *testing.T) {
	cases := []struct {
		name       string
		src, cont  Size[float64]
		mode       ScaleMode
	}{
		{"shrink", Size[float64]{1920, 1080}, Size[float64]{800, 600}, ShrinkOrGrow},
		{"grow", Size[float64]{320, 240}, Size[float64]{1280, 720}, ShrinkOrGrow},
		{"shrink-only-noop", Size[float64]{100, 100}, Size[float64]{1000, 1000}, ShrinkOnly},
		{"grow-only-noop", Size[float64]{1000, 1000}, Size[float64]{100, 100}, GrowOnly},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := ScaledToFit(c.src, c.cont, c.mode)
			if c.mode == ShrinkOrGrow {
				assert.True(t, out.Fits(c.cont))
			}
			srcRatio := float64(c.src.Width) / float64(c.src.Height)
			outRatio := float64(out.Width) / float64(out.Height)
			assert.InDelta(t, srcRatio, outRatio, 0.01)
		})
	}
}

func TestRectClampedIsInside(t *testing.T) {
	container := Size[int]{Width: 100, Height: 100}
	rects := []Rect[int]{
		{Offset: Point[int]{-10, -10}, Size: Size[int]{50, 50}},
		{Offset: Point[int]{90, 90}, Size: Size[int]{50, 50}},
		{Offset: Point[int]{10, 10}, Size: Size[int]{10, 10}},
	}
	for _, r := range rects {
		clamped := r.Clamped(container)
		require.True(t, clamped.IsInside(container), "rect %+v clamped to %+v", r, clamped)
	}
}

func TestWithOriginFlipsY(t *testing.T) {
	container := Size[int]{Width: 100, Height: 200}
	r := Rect[int]{Offset: Point[int]{0, 10}, Size: Size[int]{10, 20}, Origin: TopLeft}
	flipped := r.WithOrigin(BottomLeft, container)
	assert.Equal(t, 200-10-20, flipped.Offset.Y)
	back := flipped.WithOrigin(TopLeft, container)
	assert.Equal(t, r.Offset.Y, back.Offset.Y)
}

func TestStaticCastLossless(t *testing.T) {
	v, err := StaticCast[int](float64(4))
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	_, err = StaticCast[int](float64(4.5))
	require.Error(t, err)
}
