// Package remote is the shared dialing/sending helper behind every
// CLI remote of spec §6: one thin executable per UserAction, each
// accepting an optional positional count (default 1) and sending
// either a single RemoteUserAction event or a MultiEvent batch of
// count copies over the APIEvent mailslot.
//
// Grounded on the teacher's cli package convention of a shared
// Config reused by many thin command entry points, adapted here from
// "shared flag-parsing config" to "shared mailslot dial + send".
package remote

import (
	"fmt"

	"kneeboard.dev/core/apievent"
)

// ReverseDomain and ProtocolSuffix name the well-known mailslot this
// module's app instance listens on, per spec §6. A real deployment
// would make these configurable (config.Config.MailslotSuffix); the
// CLI remotes use the fixed default since they have no config file
// concept of their own.
const (
	ReverseDomain  = "com.openkneeboard"
	ProtocolSuffix = "v1.3"
)

// buildEvent returns the single Event or MultiEvent batch SendUserAction
// would dispatch for action and count, split out so the count==1 vs.
// count>1 branching (spec §6) is testable without a real mailslot.
func buildEvent(action string, count int) (apievent.Event, error) {
	if count < 1 {
		return apievent.Event{}, fmt.Errorf("remote: count must be >= 1, got %d", count)
	}
	ev := apievent.Event{Name: "RemoteUserAction", Value: action}
	if count == 1 {
		return ev, nil
	}
	events := make([]apievent.Event, count)
	for i := range events {
		events[i] = ev
	}
	multi, err := apievent.EncodeMultiEvent(events)
	if err != nil {
		return apievent.Event{}, fmt.Errorf("remote: encode MultiEvent: %w", err)
	}
	return multi, nil
}

// SendUserAction dials the app's APIEvent mailslot and sends count
// copies of a RemoteUserAction event naming action, per spec §6:
// count == 1 sends a single event; otherwise a MultiEvent batch.
func SendUserAction(action string, count int) error {
	ev, err := buildEvent(action, count)
	if err != nil {
		return err
	}

	client, err := apievent.DialClient(ReverseDomain, ProtocolSuffix)
	if err != nil {
		return fmt.Errorf("remote: dial mailslot: %w", err)
	}
	defer client.Close()

	return client.Send(ev)
}
