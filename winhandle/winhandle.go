// Package winhandle provides a RAII "owned handle" wrapper around
// Win32 HANDLE values, per spec §9's "expose C-style NT-handle sharing
// as an owned-handle type; duplicate-on-import, close-on-drop" design
// note. No package in this module imports it: shm, apievent, and
// debugprint call windows.CloseHandle on their kernel handles
// directly.
package winhandle

import (
	"sync"

	"golang.org/x/sys/windows"
)

// Handle owns a Win32 handle and closes it exactly once, even if
// Close is called from multiple goroutines or deferred more than
// once.
type Handle struct {
	mu  sync.Mutex
	h   windows.Handle
	own bool
}

// Own wraps an already-owned handle (the caller transfers ownership).
func Own(h windows.Handle) *Handle {
	return &Handle{h: h, own: true}
}

// Borrow wraps a handle this type does not own; Close is a no-op.
func Borrow(h windows.Handle) *Handle {
	return &Handle{h: h, own: false}
}

// Value returns the underlying handle. The caller must not close it
// directly; the returned value is only valid while this Handle is
// still alive (i.e. Close has not been called).
func (h *Handle) Value() windows.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.h
}

// Close releases the handle if owned. Idempotent: subsequent calls
// are no-ops.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.own || h.h == 0 || h.h == windows.InvalidHandle {
		h.h = 0
		return nil
	}
	err := windows.CloseHandle(h.h)
	h.h = 0
	h.own = false
	return err
}

// DuplicateInto duplicates h into the target process (identified by
// targetProcess, typically opened via OpenProcess from the target
// PID) and returns a new owned Handle valid in that process's address
// space. The shm reader does not call it; it passes the writer's NT
// texture/fence handles straight to its ClientDevice.
func DuplicateInto(h *Handle, sourceProcess, targetProcess windows.Handle) (*Handle, error) {
	var dup windows.Handle
	err := windows.DuplicateHandle(
		sourceProcess, h.Value(),
		targetProcess, &dup,
		0, false,
		windows.DUPLICATE_SAME_ACCESS,
	)
	if err != nil {
		return nil, err
	}
	return Own(dup), nil
}
