package debugprint

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"kneeboard.dev/core/internal/errs"
)

// Object names are derived from the reverse-domain, matching the
// naming convention shm and apievent use for their own kernel objects.
func mappingName(reverseDomain string) string { return `Local\` + reverseDomain + `.debugprint.map` }
func mutexName(reverseDomain string) string    { return `Local\` + reverseDomain + `.debugprint.mutex` }
func bufferReadyName(reverseDomain string) string {
	return `Local\` + reverseDomain + `.debugprint.bufferready`
}
func dataReadyName(reverseDomain string) string {
	return `Local\` + reverseDomain + `.debugprint.dataready`
}

// ipcObjects bundles the four named kernel objects shared between the
// Collector (app side) and Writer (injected-process side).
type ipcObjects struct {
	mapping     windows.Handle
	view        uintptr
	mutexH      windows.Handle
	bufferReady windows.Handle
	dataReady   windows.Handle
}

func createIPCObjects(reverseDomain string) (*ipcObjects, error) {
	name, err := windows.UTF16PtrFromString(mappingName(reverseDomain))
	if err != nil {
		return nil, err
	}
	mapping, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE,
		0, uint32(unsafe.Sizeof(DPrintMessage{})), name)
	if err != nil {
		return nil, fmt.Errorf("debugprint: CreateFileMapping: %w", err)
	}
	view, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_WRITE, 0, 0, unsafe.Sizeof(DPrintMessage{}))
	if err != nil {
		windows.CloseHandle(mapping)
		return nil, fmt.Errorf("debugprint: MapViewOfFile: %w", err)
	}

	mutexH, err := createNamedMutex(mutexName(reverseDomain))
	if err != nil {
		windows.UnmapViewOfFile(view)
		windows.CloseHandle(mapping)
		return nil, err
	}
	// bufferReady starts signaled: the buffer is empty and ready for a
	// writer to claim it. dataReady starts unsignaled.
	bufferReady, err := createNamedEvent(bufferReadyName(reverseDomain), true)
	if err != nil {
		windows.CloseHandle(mutexH)
		windows.UnmapViewOfFile(view)
		windows.CloseHandle(mapping)
		return nil, err
	}
	dataReady, err := createNamedEvent(dataReadyName(reverseDomain), false)
	if err != nil {
		windows.CloseHandle(bufferReady)
		windows.CloseHandle(mutexH)
		windows.UnmapViewOfFile(view)
		windows.CloseHandle(mapping)
		return nil, err
	}

	return &ipcObjects{
		mapping:     mapping,
		view:        view,
		mutexH:      mutexH,
		bufferReady: bufferReady,
		dataReady:   dataReady,
	}, nil
}

func createNamedMutex(name string) (windows.Handle, error) {
	n, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	h, err := windows.CreateMutex(nil, false, n)
	if err != nil {
		return 0, fmt.Errorf("debugprint: CreateMutex: %w", err)
	}
	return h, nil
}

func createNamedEvent(name string, initialState bool) (windows.Handle, error) {
	n, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	h, err := windows.CreateEvent(nil, 1 /* manual-reset */, boolToUint32(initialState), n)
	if err != nil {
		return 0, fmt.Errorf("debugprint: CreateEvent %q: %w", name, err)
	}
	return h, nil
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (o *ipcObjects) close() {
	errs.Log(windows.CloseHandle(o.dataReady))
	errs.Log(windows.CloseHandle(o.bufferReady))
	errs.Log(windows.CloseHandle(o.mutexH))
	errs.Log(windows.UnmapViewOfFile(o.view))
	errs.Log(windows.CloseHandle(o.mapping))
}

func (o *ipcObjects) readMessage() DPrintMessage {
	return *(*DPrintMessage)(unsafe.Pointer(o.view))
}

func (o *ipcObjects) writeMessage(m DPrintMessage) {
	*(*DPrintMessage)(unsafe.Pointer(o.view)) = m
}

// waitOne waits on h, returning errs.Cancelled if ctx is done first.
// Matches the ctx-cancellable-blocking-wait convention used by
// apievent.OrderedQueue.next, since WaitForSingleObject itself has no
// context awareness.
func waitOne(ctx context.Context, h windows.Handle) error {
	done := make(chan error, 1)
	go func() {
		event, err := windows.WaitForSingleObject(h, windows.INFINITE)
		if err != nil {
			done <- err
			return
		}
		if event != windows.WAIT_OBJECT_0 {
			done <- fmt.Errorf("debugprint: unexpected wait result %d", event)
			return
		}
		done <- nil
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errs.Cancelled
	}
}
