package pagesource

import (
	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
)

// Cache is the external render cache PageSourceWithDelegates wraps
// delegates in when they don't implement WithInternalCaching (spec
// §4.G/§4.J's CachedLayer, keyed on (RenderTargetID, PageID,
// PixelSize) with content-change invalidation). Implemented by
// render.CachedLayer; kept as a tiny interface here so pagesource
// never imports render.
type Cache interface {
	// RenderCached skips draw when (rt.ID(), page, size) has a live
	// entry, leaving the target's existing pixels in place; otherwise
	// it calls draw and records the entry as live.
	RenderCached(rc RenderContext, page ids.PageID, size geom.Size[int], draw func(RenderContext) error) error
	// InvalidateAll clears every cached entry, called when a delegate
	// emits ContentChanged.
	InvalidateAll()
}
