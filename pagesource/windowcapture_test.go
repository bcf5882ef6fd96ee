package pagesource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kneeboard.dev/core/geom"
)

type fakeCapturer struct {
	frames chan CapturedFrame
	closed bool
}

func newFakeCapturer() *fakeCapturer {
	return &fakeCapturer{frames: make(chan CapturedFrame, 4)}
}

func (c *fakeCapturer) Frames(ctx context.Context) (<-chan CapturedFrame, error) {
	return c.frames, nil
}

func (c *fakeCapturer) Close() error {
	c.closed = true
	return nil
}

type fakeCaptureSurface struct {
	size   geom.Size[int]
	blits  int
}

func (s *fakeCaptureSurface) Size() geom.Size[int] { return s.size }
func (s *fakeCaptureSurface) BlitFrame(frame CapturedFrame) error {
	s.blits++
	return nil
}

func TestWindowCaptureBlitsLatestFrameOnRenderPage(t *testing.T) {
	capturer := newFakeCapturer()
	var created []*fakeCaptureSurface
	wc := NewWindowCapture(capturer, func(size geom.Size[int]) (CaptureSurface, error) {
		s := &fakeCaptureSurface{size: size}
		created = append(created, s)
		return s, nil
	}, WindowCaptureOptions{CaptureCursor: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, wc.Start(ctx))

	var repainted int
	wc.NeedsRepaint().AddHandler(&wc.Base, func(struct{}) { repainted++ })

	capturer.frames <- CapturedFrame{Size: geom.Size[int]{Width: 800, Height: 600}}
	require.Eventually(t, func() bool { return repainted > 0 }, time.Second, time.Millisecond)

	require.NoError(t, wc.RenderPage(RenderContext{}, wc.GetPageIDs()[0]))
	require.Len(t, created, 1)
	assert.Equal(t, 1, created[0].blits)

	size, ok := wc.GetPreferredSize(wc.GetPageIDs()[0])
	require.True(t, ok)
	assert.Equal(t, 800, size.PixelSize.Width)

	require.NoError(t, wc.Close())
	assert.True(t, capturer.closed)
}

func TestWindowCaptureRenderPageIsNoopBeforeFirstFrame(t *testing.T) {
	capturer := newFakeCapturer()
	wc := NewWindowCapture(capturer, func(size geom.Size[int]) (CaptureSurface, error) {
		t.Fatal("surface factory should not be called before any frame arrives")
		return nil, nil
	}, WindowCaptureOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, wc.Start(ctx))

	require.NoError(t, wc.RenderPage(RenderContext{}, wc.GetPageIDs()[0]))
	require.NoError(t, wc.Close())
}

func TestWindowCaptureRenderPageRejectsUnknownPage(t *testing.T) {
	capturer := newFakeCapturer()
	wc := NewWindowCapture(capturer, nil, WindowCaptureOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, wc.Start(ctx))
	defer wc.Close()

	err := wc.RenderPage(RenderContext{}, 0)
	assert.Error(t, err)
}
