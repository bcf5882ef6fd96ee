package kneeboard

import (
	"sync/atomic"

	"kneeboard.dev/core/pagesource"
)

// TabID identifies one entry in the orchestrator's tabs list. Spec
// §3's data model doesn't name a tab id type (only RenderTargetID,
// PageID, KneeboardViewID, LayerID), but SetTabByID (spec §4.F) needs
// a stable handle distinct from any one view's current PageID, so
// this package mints its own, following ids' "monotonic counter,
// 0 is null" convention.
type TabID uint64

// IsNull reports whether id is the reserved zero sentinel.
func (id TabID) IsNull() bool { return id == 0 }

var tabCounter atomic.Uint64

// NextTabID mints a new, process-unique TabID.
func NextTabID() TabID { return TabID(tabCounter.Add(1)) }

// Tab is one entry of the orchestrator's tabs list (spec §4.L: "tabs-
// list" is one of the singletons KneeboardState owns).
type Tab struct {
	ID     TabID
	Name   string
	Source pagesource.Source
}

// NewTab mints a TabID and wraps source under name.
func NewTab(name string, source pagesource.Source) *Tab {
	return &Tab{ID: NextTabID(), Name: name, Source: source}
}
