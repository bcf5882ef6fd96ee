// Package ids mints the opaque, monotonically-increasing handle types
// shared across the renderer, page-source, and view layers (spec §3):
// RenderTargetID, PageID, KneeboardViewID, and LayerID. Each is a
// distinct type so the compiler rejects mixing them up; all share the
// same "0 is the null sentinel, equality is by value, never persisted"
// contract.
package ids

import "sync/atomic"

// RenderTargetID identifies one render target (spec §3/§4.J).
type RenderTargetID uint64

// PageID identifies one renderable page within a tab (spec §3).
type PageID uint64

// KneeboardViewID identifies one KneeboardView (spec §3/§4.H).
type KneeboardViewID uint64

// LayerID identifies one SHM/VR layer (spec §3/§4.I).
type LayerID uint64

// IsNull reports whether an ID is the reserved zero sentinel.
func (id RenderTargetID) IsNull() bool  { return id == 0 }
func (id PageID) IsNull() bool          { return id == 0 }
func (id KneeboardViewID) IsNull() bool { return id == 0 }
func (id LayerID) IsNull() bool         { return id == 0 }

var (
	renderTargetCounter atomic.Uint64
	pageCounter         atomic.Uint64
	viewCounter         atomic.Uint64
	layerCounter        atomic.Uint64
)

// NextRenderTargetID mints a new, process-unique RenderTargetID.
func NextRenderTargetID() RenderTargetID { return RenderTargetID(renderTargetCounter.Add(1)) }

// NextPageID mints a new, process-unique PageID.
func NextPageID() PageID { return PageID(pageCounter.Add(1)) }

// NextKneeboardViewID mints a new, process-unique KneeboardViewID.
func NextKneeboardViewID() KneeboardViewID { return KneeboardViewID(viewCounter.Add(1)) }

// NextLayerID mints a new, process-unique LayerID.
func NextLayerID() LayerID { return LayerID(layerCounter.Add(1)) }
