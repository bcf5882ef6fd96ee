package kneeboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"kneeboard.dev/core/apievent"
)

// setTabPayload covers SetTabByID/SetTabByName/SetTabByIndex, whose
// only difference is which selector field is populated (spec §4.F).
type setTabPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Index      *int   `json:"index"`
	PageNumber *int   `json:"pageNumber"`
	Kneeboard  *int   `json:"kneeboard"`
}

func (p setTabPayload) pageNumber() int {
	if p.PageNumber == nil {
		return 0
	}
	return *p.PageNumber
}

func (p setTabPayload) viewIdx() int {
	if p.Kneeboard == nil {
		return -1
	}
	return *p.Kneeboard
}

type setProfilePayload struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

type setBrightnessPayload struct {
	Brightness float64 `json:"brightness"`
	Mode       string  `json:"mode"` // "Absolute" | "Relative"
}

type pluginTabCustomActionPayload struct {
	ActionID  string `json:"actionID"`
	ExtraData string `json:"extraData"`
}

// ErrUnknownAPIEvent is returned by HandleAPIEvent for event names
// outside the builtin set of spec §4.F; callers that also plug in
// plugin-defined event names should treat this as non-fatal.
var ErrUnknownAPIEvent = fmt.Errorf("kneeboard: unrecognized APIEvent name")

// HandleAPIEvent dispatches one decoded APIEvent to the matching
// builtin handler (spec §4.F's table of recognised events). It is
// suitable as an apievent.Handler for apievent.NewOrderedQueue.
// MultiEvent batches are expanded by the OrderedQueue itself before
// reaching here, so this handler never sees that name.
func (s *State) HandleAPIEvent(ctx context.Context, ev apievent.Event) error {
	switch ev.Name {
	case "SetTabByID":
		var p setTabPayload
		if err := json.Unmarshal([]byte(ev.Value), &p); err != nil {
			return err
		}
		tab, ok := s.TabByID(TabID(parseUintOr(p.ID, 0)))
		if !ok {
			return fmt.Errorf("kneeboard: SetTabByID: no tab with id %q", p.ID)
		}
		s.SetActiveTab(tab, p.pageNumber(), p.viewIdx())
		return nil

	case "SetTabByName":
		var p setTabPayload
		if err := json.Unmarshal([]byte(ev.Value), &p); err != nil {
			return err
		}
		tab, ok := s.TabByName(p.Name)
		if !ok {
			return fmt.Errorf("kneeboard: SetTabByName: no tab named %q", p.Name)
		}
		s.SetActiveTab(tab, p.pageNumber(), p.viewIdx())
		return nil

	case "SetTabByIndex":
		var p setTabPayload
		if err := json.Unmarshal([]byte(ev.Value), &p); err != nil {
			return err
		}
		if p.Index == nil {
			return fmt.Errorf("kneeboard: SetTabByIndex: missing index")
		}
		tab, ok := s.TabByIndex(*p.Index)
		if !ok {
			return fmt.Errorf("kneeboard: SetTabByIndex: index %d out of range", *p.Index)
		}
		s.SetActiveTab(tab, p.pageNumber(), p.viewIdx())
		return nil

	case "SetProfileByGUID":
		var p setProfilePayload
		if err := json.Unmarshal([]byte(ev.Value), &p); err != nil {
			return err
		}
		s.SwitchProfile(p.GUID, s.Tabs())
		return nil

	case "SetProfileByName":
		var p setProfilePayload
		if err := json.Unmarshal([]byte(ev.Value), &p); err != nil {
			return err
		}
		s.SwitchProfile(p.Name, s.Tabs())
		return nil

	case "SetBrightness":
		var p setBrightnessPayload
		if err := json.Unmarshal([]byte(ev.Value), &p); err != nil {
			return err
		}
		mode := BrightnessAbsolute
		if p.Mode == "Relative" {
			mode = BrightnessRelative
		}
		s.SetBrightness(p.Brightness, mode)
		return nil

	case "RemoteUserAction":
		action, ok := ParseUserAction(ev.Value)
		if !ok {
			return fmt.Errorf("kneeboard: RemoteUserAction: unknown action %q", ev.Value)
		}
		s.Dispatch(ctx, action)
		return nil

	case "PluginTabCustomAction":
		var p pluginTabCustomActionPayload
		if err := json.Unmarshal([]byte(ev.Value), &p); err != nil {
			return err
		}
		// No built-in plugin-tab registry exists in this module (game-
		// specific tabs are out of scope per spec §1); this is the
		// extension point a plugin-tab page source would hook.
		s.Troubleshooting.Log(fmt.Sprintf("PluginTabCustomAction: %s", p.ActionID))
		return nil

	default:
		return ErrUnknownAPIEvent
	}
}

// parseUintOr parses s as a decimal TabID, returning def on failure.
// SetTabByID's "id" is an opaque string on the wire; this module's
// TabID happens to be a decimal uint64, so this round-trips values
// minted by NextTabID.
func parseUintOr(s string, def uint64) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}
