package render

import (
	"sync"

	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
	"kneeboard.dev/core/pagesource"
)

// cacheKey identifies one cached render: a specific target, page, and
// output pixel size (spec §4.J: "keyed on (RenderTargetID, PageID,
// PixelSize)" — a page re-rendered at a different size, such as a
// zoomed VR layer, gets its own entry).
type cacheKey struct {
	target ids.RenderTargetID
	page   ids.PageID
	size   geom.Size[int]
}

// CachedLayer implements pagesource.Cache: the external render cache
// WithDelegates wraps a delegate in unless that delegate implements
// WithInternalCaching itself. Bitmaps are never populated here — the
// cache only remembers whether a given key's last draw is still
// live; the actual pixels live in whatever RenderTarget the draw
// callback wrote to, matching a desktop compositor's "redraw skipped,
// previous frame reused" cache rather than a software-bitmap cache.
type CachedLayer struct {
	mu    sync.Mutex
	valid map[cacheKey]struct{}
}

// NewCachedLayer returns an empty cache.
func NewCachedLayer() *CachedLayer {
	return &CachedLayer{valid: make(map[cacheKey]struct{})}
}

// RenderCached implements pagesource.Cache.
func (c *CachedLayer) RenderCached(rc pagesource.RenderContext, page ids.PageID, size geom.Size[int], draw func(pagesource.RenderContext) error) error {
	key := cacheKey{target: rc.Target.ID(), page: page, size: size}

	c.mu.Lock()
	_, hit := c.valid[key]
	c.mu.Unlock()
	if hit {
		return nil
	}

	if err := draw(rc); err != nil {
		return err
	}

	c.mu.Lock()
	c.valid[key] = struct{}{}
	c.mu.Unlock()
	return nil
}

// InvalidateAll implements pagesource.Cache, called when the wrapped
// delegate emits ContentChanged.
func (c *CachedLayer) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = make(map[cacheKey]struct{})
}

// InvalidateTarget drops every entry for one RenderTarget, used when a
// target is resized or torn down without the page content itself
// having changed.
func (c *CachedLayer) InvalidateTarget(target ids.RenderTargetID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.valid {
		if k.target == target {
			delete(c.valid, k)
		}
	}
}

// Len reports the number of live cache entries, for tests.
func (c *CachedLayer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.valid)
}
