package debugprint

import (
	"context"
	"os"

	"golang.org/x/sys/windows"

	"kneeboard.dev/core/internal/errs"
)

// Writer is the injected-process side: it opens the IPC objects the
// app's Collector already created and submits one message at a time,
// holding the named mutex for the exchange so concurrent writers from
// multiple injected processes don't interleave.
type Writer struct {
	objs *ipcObjects
	pid  uint32
}

// DialWriter opens the existing named IPC objects for reverseDomain.
// The app's Collector must already be running.
func DialWriter(reverseDomain string) (*Writer, error) {
	objs, err := createIPCObjects(reverseDomain)
	if err != nil {
		return nil, err
	}
	return &Writer{objs: objs, pid: uint32(os.Getpid())}, nil
}

// Write submits one log line: acquire the mutex, wait for the
// Collector to signal BufferReady, stamp and write the message, then
// flip BufferReady/DataReady so the Collector picks it up.
func (w *Writer) Write(ctx context.Context, line string) error {
	event, err := windows.WaitForSingleObject(w.objs.mutexH, windows.INFINITE)
	if err != nil {
		return err
	}
	if event == windows.WAIT_ABANDONED {
		errs.Log(errs.New("debugprint: writer mutex was abandoned by a previous writer"))
	}
	defer windows.ReleaseMutex(w.objs.mutexH)

	if err := waitOne(ctx, w.objs.bufferReady); err != nil {
		return err
	}
	errs.Log(windows.ResetEvent(w.objs.bufferReady))

	w.objs.writeMessage(encodeMessage(w.pid, 0, line))

	errs.Log(windows.SetEvent(w.objs.dataReady))
	return nil
}

// Close releases every IPC handle the writer owns.
func (w *Writer) Close() error {
	w.objs.close()
	return nil
}
