// Package pagesource implements the PageSource model of spec §4.G:
// IPageSource and its optional capability mixins, the reusable
// PageSourceWithDelegates composite, and the DoodleRenderer freehand
// annotation layer.
//
// The source's "polymorphism over capability sets" (spec §9) is
// implemented the idiomatic Go way: small single-method interfaces a
// caller type-asserts for, rather than a tagged enum or virtual-
// inheritance diamond.
package pagesource

import (
	"context"

	"kneeboard.dev/core/eventbus"
	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
)

// ScalingKind tells the consumer how a page's PreferredSize behaves
// when placed in a VR layer.
type ScalingKind int

const (
	// ScaleToFit: the content has no fixed physical size; the VR
	// engine fits it within the configured layer size.
	ScaleToFit ScalingKind = iota
	// ScaleToPhysicalSize: PreferredSize.PhysicalSize is authoritative
	// and the VR engine should rescale to match it (spec §4.I step 5).
	ScaleToPhysicalSize
)

// PhysicalDirection names which dimension a page's declared physical
// size measures along (spec §4.I step 5).
type PhysicalDirection int

const (
	PhysicalHorizontal PhysicalDirection = iota
	PhysicalVertical
	PhysicalDiagonal
)

// PreferredSize is what GetPreferredSize returns for a page.
type PreferredSize struct {
	PixelSize    geom.Size[int]
	ScalingKind  ScalingKind
	HasPhysical  bool
	PhysicalSize float32 // meters, along Direction
	Direction    PhysicalDirection
}

// ContentChanged carries the page source whose content changed, for
// consumers (view.TabView, render.CachedLayer) to invalidate state
// keyed on the old PageID set.
type ContentChanged struct {
	Source Source
}

// PageAppended is emitted when a new page is added to the end of a
// source's page list.
type PageAppended struct {
	Source Source
	Page   ids.PageID
}

// RenderTarget is the minimal surface RenderPage needs from the
// renderer (spec §4.J's RenderTarget), kept as a tiny interface here
// so pagesource never imports the render package.
type RenderTarget interface {
	ID() ids.RenderTargetID
}

// RenderContext carries everything RenderPage needs: a cancellable
// context, the target to draw into, and the destination rect.
type RenderContext struct {
	Ctx    context.Context
	Target RenderTarget
	Rect   geom.Rect[int]
}

// Source is the core page-source contract (spec §4.G's IPageSource).
type Source interface {
	GetPageCount() int
	GetPageIDs() []ids.PageID
	GetPreferredSize(id ids.PageID) (PreferredSize, bool)
	RenderPage(rc RenderContext, id ids.PageID) error

	NeedsRepaint() *eventbus.Event[struct{}]
	PageAppendedEvent() *eventbus.Event[PageAppended]
	ContentChangedEvent() *eventbus.Event[ContentChanged]
}

// CursorTouchState is the touch/hover state of a cursor event.
type CursorTouchState int

const (
	CursorNotTouching CursorTouchState = iota
	CursorNearSurface
	CursorTouching
)

// CursorEvent is a pointer/pen/touch sample delivered to a page
// (spec §4.K describes its producers; §4.G its consumer contract).
type CursorEvent struct {
	TouchState CursorTouchState
	Position   geom.Point[float32] // page-native coordinates
	Pressure   float32
	Buttons    uint32
}

// WithCursorEvents is the optional IPageSourceWithCursorEvents mixin.
// A Source not implementing this has cursor input forwarded to a
// DoodleRenderer instead (spec §4.G).
type WithCursorEvents interface {
	PostCursorEvent(ctx context.Context, id ids.PageID, ev CursorEvent) error
	ClearUserInput(id ids.PageID) error
	CanClearUserInput(id ids.PageID) bool
}

// NavigationEntry is one jump-to-page target in a navigation list
// (e.g. a PDF bookmark or table of contents entry).
type NavigationEntry struct {
	Name string
	Page ids.PageID
}

// WithNavigation is the optional IPageSourceWithNavigation mixin.
type WithNavigation interface {
	GetNavigationEntries() []NavigationEntry
	IsNavigationAvailable() bool
}

// WithDeveloperTools is the optional IPageSourceWithDeveloperTools
// mixin (e.g. a web-view source exposing its devtools window).
type WithDeveloperTools interface {
	HasDeveloperTools() bool
	OpenDeveloperToolsWindow() error
}

// WithInternalCaching opts a Source out of the external CachedLayer
// wrapping PageSourceWithDelegates otherwise applies, because the
// source already caches its own rendered output.
type WithInternalCaching interface {
	HasInternalCaching() bool
}
