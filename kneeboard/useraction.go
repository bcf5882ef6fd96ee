// Package kneeboard implements the orchestrator of spec §4.L:
// KneeboardState (here, State) ties together the tabs list, views,
// SHM writer, input adapters, and APIEvent transport built by the
// other packages, owns the re-entrant-for-one-thread app lock, and
// dispatches UserAction commands (spec §6) and builtin APIEvents
// (spec §4.F) to view or settings mutation.
package kneeboard

// UserAction is the enumerated command set of spec §6, issued by
// input bindings, the CLI remotes, or a RemoteUserAction APIEvent.
type UserAction int

const (
	PreviousBookmark UserAction = iota
	NextBookmark
	ToggleBookmark
	PreviousTab
	NextTab
	PreviousPage
	NextPage
	PreviousProfile
	NextProfile
	ToggleVisibility
	ToggleForceZoom
	SwitchKneeboards
	RecenterVR
	Hide
	Show
	CycleActiveView
	SwapFirstTwoViews
	RepaintNow
	EnableTint
	DisableTint
	ToggleTint
	IncreaseBrightness
	DecreaseBrightness
)

var userActionNames = [...]string{
	PreviousBookmark:   "PreviousBookmark",
	NextBookmark:       "NextBookmark",
	ToggleBookmark:     "ToggleBookmark",
	PreviousTab:        "PreviousTab",
	NextTab:            "NextTab",
	PreviousPage:       "PreviousPage",
	NextPage:           "NextPage",
	PreviousProfile:    "PreviousProfile",
	NextProfile:        "NextProfile",
	ToggleVisibility:   "ToggleVisibility",
	ToggleForceZoom:    "ToggleForceZoom",
	SwitchKneeboards:   "SwitchKneeboards",
	RecenterVR:         "RecenterVR",
	Hide:               "Hide",
	Show:               "Show",
	CycleActiveView:    "CycleActiveView",
	SwapFirstTwoViews:  "SwapFirstTwoViews",
	RepaintNow:         "RepaintNow",
	EnableTint:         "EnableTint",
	DisableTint:        "DisableTint",
	ToggleTint:         "ToggleTint",
	IncreaseBrightness: "IncreaseBrightness",
	DecreaseBrightness: "DecreaseBrightness",
}

// String returns the canonical name used on the wire (RemoteUserAction
// payload, CLI remote names) and in bindings export.
func (a UserAction) String() string {
	if int(a) < 0 || int(a) >= len(userActionNames) {
		return "UnknownUserAction"
	}
	return userActionNames[a]
}

// ParseUserAction looks up a UserAction by its canonical name, used to
// decode RemoteUserAction APIEvents and input.Binding.Action strings.
func ParseUserAction(name string) (UserAction, bool) {
	for i, n := range userActionNames {
		if n == name {
			return UserAction(i), true
		}
	}
	return 0, false
}

// AllUserActions returns every UserAction in declaration order, used
// by the CLI remote generator and by tests enumerating the full set.
func AllUserActions() []UserAction {
	out := make([]UserAction, len(userActionNames))
	for i := range userActionNames {
		out[i] = UserAction(i)
	}
	return out
}
