package kneeboard

import (
	"context"
	"sync"

	"kneeboard.dev/core/eventbus"
	"kneeboard.dev/core/view"
)

// BrightnessMode distinguishes an absolute set from a relative nudge
// (spec §4.F's SetBrightness payload).
type BrightnessMode int

const (
	BrightnessAbsolute BrightnessMode = iota
	BrightnessRelative
)

// brightnessStep is the per-dispatch delta for IncreaseBrightness/
// DecreaseBrightness (spec §6); not specified numerically by spec.md,
// chosen as a reasonable 10% step.
const brightnessStep = 0.1

// ProfileChanged is emitted after SwitchProfile rebuilds tabs/views
// (spec §4.L: "Profile switching rebuilds tabs, views, renderer
// caches, and re-emits evCurrentProfileChanged").
type ProfileChanged struct {
	Profile string
}

// State is the orchestrator of spec §4.L: it owns the tabs list,
// views, repaint flag, bookmarks, and VR/tint/brightness settings
// mutation that UserAction dispatch and builtin APIEvents target. The
// long-lived singletons spec §4.L lists (APIEvent server, input
// adapters, renderer, SHM writer) are constructed by main and wired
// to State's HandleAPIEvent/Dispatch/IsRepaintNeeded rather than
// owned as fields here, so this package imports neither shm nor
// render. It does import apievent (for HandleAPIEvent's payloads),
// whose mailslot transport uses golang.org/x/sys/windows, so the
// package builds on Windows only.
type State struct {
	AppLock AppLock

	mu            sync.Mutex
	tabs          []*Tab
	currentTabIdx int
	views         []*view.KneeboardView
	activeView    int
	bookmarksByView map[int]*bookmarkList

	visible    bool
	forceZoom  bool
	tintOn     bool
	brightness float64 // 0..1
	recenter   uint32

	needsRepaint bool
	profile      string

	Troubleshooting *Troubleshooting

	currentProfileChanged eventbus.Event[ProfileChanged]
}

// NewState builds an orchestrator over an initial tabs list, with one
// view over the first tab (if any). Additional views are added with
// AddView.
func NewState(tabs []*Tab, initialProfile string) *State {
	s := &State{
		tabs:            tabs,
		visible:         true,
		brightness:      1.0,
		profile:         initialProfile,
		bookmarksByView: make(map[int]*bookmarkList),
		Troubleshooting: NewTroubleshooting(),
	}
	if len(tabs) > 0 {
		s.views = append(s.views, view.NewKneeboardView(view.NewTabView(tabs[0].Source)))
	}
	return s
}

// CurrentProfileChanged lets callers subscribe to profile switches.
func (s *State) CurrentProfileChanged() *eventbus.Event[ProfileChanged] {
	return &s.currentProfileChanged
}

// Views returns the active KneeboardViews, in display order.
func (s *State) Views() []*view.KneeboardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*view.KneeboardView(nil), s.views...)
}

// ActiveView returns the view currently elected for input focus, or
// nil if there are none.
func (s *State) ActiveView() *view.KneeboardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeView < 0 || s.activeView >= len(s.views) {
		return nil
	}
	return s.views[s.activeView]
}

// IsRepaintNeeded reports whether a repaint has been requested since
// the last Repainted call (spec §4.L).
func (s *State) IsRepaintNeeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsRepaint
}

// Repainted clears the repaint-needed flag; called by the renderer
// loop once it has produced a fresh composite (spec §4.L).
func (s *State) Repainted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.needsRepaint = false
}

func (s *State) requestRepaintLocked() {
	s.needsRepaint = true
}

// RequestRepaint marks a repaint as needed without taking any other
// action (e.g. a page source's evNeedsRepaint).
func (s *State) RequestRepaint() {
	s.mu.Lock()
	s.requestRepaintLocked()
	s.mu.Unlock()
}

// Visible, ForceZoomEnabled, TintEnabled, and Brightness report the
// current settings state for the renderer/VR engine to read each
// frame.
func (s *State) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *State) ForceZoomEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forceZoom
}

func (s *State) TintEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tintOn
}

func (s *State) Brightness() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brightness
}

func (s *State) RecenterCount() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recenter
}

func clampBrightness(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SetBrightness applies value either as an absolute level or as a
// relative delta, clamped to [0,1] (spec §4.F's SetBrightness
// payload).
func (s *State) SetBrightness(value float64, mode BrightnessMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch mode {
	case BrightnessAbsolute:
		s.brightness = clampBrightness(value)
	case BrightnessRelative:
		s.brightness = clampBrightness(s.brightness + value)
	}
	s.requestRepaintLocked()
}

// bookmarksLocked returns (creating if absent) the bookmark list for
// the given view index. Caller must hold s.mu.
func (s *State) bookmarksLocked(viewIdx int) *bookmarkList {
	bl, ok := s.bookmarksByView[viewIdx]
	if !ok {
		bl = &bookmarkList{}
		s.bookmarksByView[viewIdx] = bl
	}
	return bl
}

// Dispatch runs the settings/view mutation for action (spec §4.L:
// "Dispatches UserAction -> view or settings mutation"), under the
// app lock.
func (s *State) Dispatch(ctx context.Context, action UserAction) {
	s.AppLock.With(ctx, func(context.Context) {
		s.dispatchLocked(action)
	})
}

func (s *State) dispatchLocked(action UserAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch action {
	case PreviousPage:
		s.withActiveTabViewLocked(func(tv *view.TabView) { tv.PreviousPage() })
	case NextPage:
		s.withActiveTabViewLocked(func(tv *view.TabView) { tv.NextPage() })
	case PreviousTab:
		s.switchTabLocked(-1)
	case NextTab:
		s.switchTabLocked(1)
	case PreviousBookmark:
		s.stepBookmarkLocked(-1)
	case NextBookmark:
		s.stepBookmarkLocked(1)
	case ToggleBookmark:
		s.toggleBookmarkLocked()
	case PreviousProfile, NextProfile:
		// Profile list traversal is owned by the (out-of-scope)
		// settings UI; this orchestrator only knows how to switch to
		// a named profile via SwitchProfile/SetProfileByName.
	case ToggleVisibility:
		s.visible = !s.visible
	case Hide:
		s.visible = false
	case Show:
		s.visible = true
	case ToggleForceZoom:
		s.forceZoom = !s.forceZoom
	case RecenterVR:
		s.recenter++
	case SwitchKneeboards, CycleActiveView:
		if len(s.views) > 0 {
			s.activeView = (s.activeView + 1) % len(s.views)
		}
	case SwapFirstTwoViews:
		if len(s.views) >= 2 {
			s.views[0], s.views[1] = s.views[1], s.views[0]
		}
	case RepaintNow:
		// falls through to requestRepaintLocked below
	case EnableTint:
		s.tintOn = true
	case DisableTint:
		s.tintOn = false
	case ToggleTint:
		s.tintOn = !s.tintOn
	case IncreaseBrightness:
		s.brightness = clampBrightness(s.brightness + brightnessStep)
	case DecreaseBrightness:
		s.brightness = clampBrightness(s.brightness - brightnessStep)
	}

	s.requestRepaintLocked()
}

// withActiveTabViewLocked runs fn against the active view's TabView,
// if any. Caller must hold s.mu.
func (s *State) withActiveTabViewLocked(fn func(*view.TabView)) {
	if s.activeView < 0 || s.activeView >= len(s.views) {
		return
	}
	fn(s.views[s.activeView].TabView())
}

// switchTabLocked moves the active view's root tab by delta (wrapping
// through the tabs list) and rebinds the view's TabView to the new
// root (spec §4.L dispatches PreviousTab/NextTab to "view or settings
// mutation"). Caller must hold s.mu.
func (s *State) switchTabLocked(delta int) {
	if len(s.tabs) == 0 || s.activeView < 0 || s.activeView >= len(s.views) {
		return
	}
	s.currentTabIdx = (s.currentTabIdx + delta + len(s.tabs)) % len(s.tabs)
	s.views[s.activeView].SetTabView(view.NewTabView(s.tabs[s.currentTabIdx].Source))
}

func (s *State) stepBookmarkLocked(delta int) {
	if s.activeView < 0 || s.activeView >= len(s.views) {
		return
	}
	tv := s.views[s.activeView].TabView()
	bl := s.bookmarksLocked(s.activeView)
	mark, ok := bl.step(s.tabs[s.currentTabIdx].ID, tv.CurrentPageID(), delta)
	if !ok {
		return
	}
	tv.SetPageID(mark.Page)
}

func (s *State) toggleBookmarkLocked() {
	if s.activeView < 0 || s.activeView >= len(s.views) || len(s.tabs) == 0 {
		return
	}
	tv := s.views[s.activeView].TabView()
	bl := s.bookmarksLocked(s.activeView)
	bl.Toggle(s.tabs[s.currentTabIdx].ID, tv.CurrentPageID(), "")
}

// Bookmarks returns the bookmarks for the given view index.
func (s *State) Bookmarks(viewIdx int) []Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookmarksLocked(viewIdx).List()
}

// AddView appends a new KneeboardView over root's TabView.
func (s *State) AddView(v *view.KneeboardView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, v)
}

// SwitchProfile rebuilds the tabs list and views under newTabs, sets
// the active profile name, and re-emits CurrentProfileChanged (spec
// §4.L: "Profile switching rebuilds tabs, views, renderer caches").
// Renderer cache invalidation is the caller's responsibility (it
// reacts to CurrentProfileChanged by clearing its render.CachedLayer
// instances), since State has no renderer dependency.
func (s *State) SwitchProfile(profile string, newTabs []*Tab) {
	s.mu.Lock()
	s.tabs = newTabs
	s.currentTabIdx = 0
	s.bookmarksByView = make(map[int]*bookmarkList)
	var newViews []*view.KneeboardView
	if len(newTabs) > 0 {
		for range s.views {
			newViews = append(newViews, view.NewKneeboardView(view.NewTabView(newTabs[0].Source)))
		}
		if len(newViews) == 0 {
			newViews = append(newViews, view.NewKneeboardView(view.NewTabView(newTabs[0].Source)))
		}
	}
	s.views = newViews
	s.activeView = 0
	s.profile = profile
	s.requestRepaintLocked()
	s.mu.Unlock()

	s.currentProfileChanged.Emit(ProfileChanged{Profile: profile})
}

// CurrentProfile returns the active profile name/GUID.
func (s *State) CurrentProfile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Tabs returns the current tabs list.
func (s *State) Tabs() []*Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Tab(nil), s.tabs...)
}

// TabByID looks up a tab by id.
func (s *State) TabByID(id TabID) (*Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tabs {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// TabByName looks up a tab by its display name.
func (s *State) TabByName(name string) (*Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tabs {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// TabByIndex looks up a tab by its position in the tabs list.
func (s *State) TabByIndex(index int) (*Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tabs) {
		return nil, false
	}
	return s.tabs[index], true
}

// SetActiveTab switches the targeted view's TabView to tab and,
// optionally, a specific page within it (spec §4.F's SetTabByID/
// SetTabByName/SetTabByIndex payload shape: `{ id|name|index,
// pageNumber?, kneeboard? }`). viewIdx < 0 targets the active view.
func (s *State) SetActiveTab(tab *Tab, pageNumber int, viewIdx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if viewIdx < 0 {
		viewIdx = s.activeView
	}
	if viewIdx < 0 || viewIdx >= len(s.views) {
		return
	}
	for i, t := range s.tabs {
		if t.ID == tab.ID {
			s.currentTabIdx = i
			break
		}
	}
	tv := view.NewTabView(tab.Source)
	if pageNumber > 0 {
		if pages := tab.Source.GetPageIDs(); pageNumber-1 < len(pages) {
			tv.SetPageID(pages[pageNumber-1])
		}
	}
	s.views[viewIdx].SetTabView(tv)
	s.requestRepaintLocked()
}
