// Package debugprint implements the DebugPrint IPC channel (spec §6):
// a named mutex, a fixed-size shared mapping, and two named events
// (BufferReady, DataReady) used to collect UTF-16 log lines from an
// injected process into the app, plus a SPEC_FULL-supplemented
// loopback websocket tail a troubleshooting window can attach to.
package debugprint

import "unsafe"

// messageTotalSize is the fixed size of the shared mapping, per
// spec §6: "total 4 KiB".
const messageTotalSize = 4096

// Header carries the identity of the writing process. It precedes
// the message body in the mapping.
type Header struct {
	ProcessID uint32
	ThreadID  uint32
}

// MaxMessageLength is the number of UTF-16 code units the message
// body can hold, per spec §6:
// "(4096 − sizeof(header) − sizeof(uint64))/sizeof(wchar_t)".
const MaxMessageLength = (messageTotalSize - int(unsafe.Sizeof(Header{})) - 8) / 2

// DPrintMessage is the fixed-layout struct written into the shared
// mapping: header, message body, then the message's length in UTF-16
// code units, per spec §6.
type DPrintMessage struct {
	Header        Header
	Message       [MaxMessageLength]uint16
	MessageLength uint64
}

// sizeCheck fails to compile if DPrintMessage's layout drifts from
// the 4 KiB budget the mapping is sized to.
var _ [messageTotalSize]byte = [unsafe.Sizeof(DPrintMessage{})]byte{}

// encodeMessage truncates s to MaxMessageLength UTF-16 code units and
// packs it into a DPrintMessage.
func encodeMessage(pid, tid uint32, s string) DPrintMessage {
	units := utf16Encode(s)
	if len(units) > MaxMessageLength {
		units = units[:MaxMessageLength]
	}
	var m DPrintMessage
	m.Header = Header{ProcessID: pid, ThreadID: tid}
	copy(m.Message[:], units)
	m.MessageLength = uint64(len(units))
	return m
}

// decodeMessage returns the UTF-16 message body as a string.
func decodeMessage(m DPrintMessage) string {
	n := m.MessageLength
	if n > uint64(len(m.Message)) {
		n = uint64(len(m.Message))
	}
	return utf16Decode(m.Message[:n])
}
