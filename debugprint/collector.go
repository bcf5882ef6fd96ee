package debugprint

import (
	"context"

	"golang.org/x/sys/windows"

	"kneeboard.dev/core/eventbus"
	"kneeboard.dev/core/internal/errs"
)

// LineReceived is emitted once per collected debug print line.
type LineReceived struct {
	ProcessID uint32
	Line      string
}

// Collector owns the IPC objects on the app side and hands off each
// collected message to subscribers of Lines.
type Collector struct {
	objs  *ipcObjects
	Lines eventbus.Event[LineReceived]
}

// NewCollector creates (or opens) the named IPC objects for
// reverseDomain and prepares to collect messages.
func NewCollector(reverseDomain string) (*Collector, error) {
	objs, err := createIPCObjects(reverseDomain)
	if err != nil {
		return nil, err
	}
	return &Collector{objs: objs}, nil
}

// Run waits for DataReady, drains one message, signals BufferReady,
// and repeats until ctx is cancelled. Mirrors apievent.Server.Serve's
// blocking-read-loop shape, but driven by events instead of polling
// since the mailslot API has no equivalent wait primitive.
func (c *Collector) Run(ctx context.Context) error {
	for {
		if err := waitOne(ctx, c.objs.dataReady); err != nil {
			return err
		}
		msg := c.objs.readMessage()
		line := decodeMessage(msg)
		errs.Log(windows.ResetEvent(c.objs.dataReady))
		errs.Log(windows.SetEvent(c.objs.bufferReady))
		c.Lines.Emit(LineReceived{ProcessID: msg.Header.ProcessID, Line: line})
	}
}

// Close releases every IPC handle the collector owns.
func (c *Collector) Close() error {
	c.objs.close()
	return nil
}
