// Package apievent implements the APIEvent transport of spec §4.F: a
// named mailslot carrying {name, value} packets from injected games
// or external tools, and an ordered dispatch queue that replays
// MultiEvent batches one at a time with a UI-thread yield between
// each, preserving ordering guarantees to other subsystems.
package apievent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Event is a single {name, value} APIEvent (spec §4.F/glossary).
type Event struct {
	Name  string
	Value string
}

// Valid reports whether e is a non-zero event; the zero Event is the
// "falsy" sentinel returned by Unserialize on malformed input (spec
// §8 invariant 4).
func (e Event) Valid() bool { return e.Name != "" }

// EventMultiEvent is the reserved name that carries a JSON-encoded
// batch of [name, value] pairs (spec §4.F).
const EventMultiEvent = "MultiEvent"

// Serialize encodes e as "{:08x}!{name}!{:08x}!{value}!" where the
// hex fields are byte lengths of name and value respectively (spec
// §4.F).
func (e Event) Serialize() string {
	return fmt.Sprintf("%08x!%s!%08x!%s!", len(e.Name), e.Name, len(e.Value), e.Value)
}

// Unserialize decodes a packet produced by Serialize. Malformed
// packets (wrong length fields, missing trailing '!', truncated
// input) return the zero Event and a non-nil error but never panic
// (spec §8 invariant 4: "never throws"). Packets not ending in '!'
// are rejected per spec §4.F.
func Unserialize(packet string) (Event, error) {
	if !strings.HasSuffix(packet, "!") {
		return Event{}, fmt.Errorf("apievent: packet does not end with '!'")
	}
	rest := packet

	nameLen, rest, err := takeHexLen(rest)
	if err != nil {
		return Event{}, err
	}
	name, rest, err := takeField(rest, nameLen)
	if err != nil {
		return Event{}, err
	}

	valueLen, rest, err := takeHexLen(rest)
	if err != nil {
		return Event{}, err
	}
	value, rest, err := takeField(rest, valueLen)
	if err != nil {
		return Event{}, err
	}

	if rest != "" {
		return Event{}, fmt.Errorf("apievent: unexpected trailer %q", rest)
	}
	if name == "" {
		return Event{}, fmt.Errorf("apievent: empty name")
	}
	return Event{Name: name, Value: value}, nil
}

func takeHexLen(s string) (length int, rest string, err error) {
	if len(s) < 8 {
		return 0, s, fmt.Errorf("apievent: truncated length field")
	}
	n, err := strconv.ParseUint(s[:8], 16, 32)
	if err != nil {
		return 0, s, fmt.Errorf("apievent: bad length field: %w", err)
	}
	if len(s) < 9 || s[8] != '!' {
		return 0, s, fmt.Errorf("apievent: missing '!' after length field")
	}
	return int(n), s[9:], nil
}

func takeField(s string, length int) (field, rest string, err error) {
	if len(s) < length+1 {
		return "", s, fmt.Errorf("apievent: truncated field of length %d", length)
	}
	field = s[:length]
	if s[length] != '!' {
		return "", s, fmt.Errorf("apievent: missing '!' after field")
	}
	return field, s[length+1:], nil
}

// multiEventPair is one [name, value] entry of a MultiEvent batch.
type multiEventPair [2]string

// DecodeMultiEvent parses the JSON array payload of a MultiEvent
// Event's Value.
func DecodeMultiEvent(value string) ([]Event, error) {
	var pairs []multiEventPair
	if err := json.Unmarshal([]byte(value), &pairs); err != nil {
		return nil, fmt.Errorf("apievent: bad MultiEvent payload: %w", err)
	}
	out := make([]Event, len(pairs))
	for i, p := range pairs {
		out[i] = Event{Name: p[0], Value: p[1]}
	}
	return out, nil
}

// EncodeMultiEvent is the inverse of DecodeMultiEvent, used by the
// CLI remotes of spec §6 when count > 1.
func EncodeMultiEvent(events []Event) (Event, error) {
	pairs := make([]multiEventPair, len(events))
	for i, e := range events {
		pairs[i] = multiEventPair{e.Name, e.Value}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: EventMultiEvent, Value: string(data)}, nil
}
