package app

import (
	"context"
	"fmt"
	"time"

	"kneeboard.dev/core/internal/errs"
	"kneeboard.dev/core/shm"
)

// FrameSink receives each Snapshot the Viewer pulls from SHM (the
// cached one again when the sequence has not changed) — the real VR
// engine's swapchain submission, or (in the headless demo entry point)
// a simple frame counter.
type FrameSink interface {
	Frame(snap *shm.Snapshot)
}

// Viewer is the consumer-process half of the pipeline: it polls the
// SHM reader at its own cadence and hands every snapshot it returns
// to a FrameSink, acking each newly read sequence back to the feeder,
// whose Writer.BroadcastSeen records it per client (spec §4.D/§4.E).
type Viewer struct {
	Reader    *shm.Reader
	ClientPID uint32
	Sink      FrameSink

	// Broadcast routes a consumed sequence back to the feeder's
	// Writer.BroadcastSeen. A combined demo process can wire this
	// directly (see InProcessBroadcast); a standalone viewer process
	// instead sends it over whatever small loopback channel the
	// feeder listens on for this purpose — spec.md only specifies the
	// SHM broadcast region's contents, not its cross-process
	// transport, so that channel is left to the caller.
	Broadcast func(clientPID uint32, seq uint64)

	PollInterval time.Duration
}

// NewViewer builds a Viewer over reader, polling at 60Hz by default.
func NewViewer(reader *shm.Reader, clientPID uint32, sink FrameSink, broadcast func(clientPID uint32, seq uint64)) *Viewer {
	return &Viewer{Reader: reader, ClientPID: clientPID, Sink: sink, Broadcast: broadcast, PollInterval: time.Second / 60}
}

// InProcessBroadcast routes a Viewer's acked sequence directly to
// writer.BroadcastSeen, for a combined feeder+viewer demo running in
// one process.
func InProcessBroadcast(writer *shm.Writer) func(clientPID uint32, seq uint64) {
	return writer.BroadcastSeen
}

// Run polls Reader.MaybeGet on PollInterval and hands every returned
// snapshot to Sink until ctx is cancelled, then closes the reader
// (spec §4.E: Close "must block until the last in-flight copy has
// completed").
func (v *Viewer) Run(ctx context.Context) error {
	interval := v.PollInterval
	if interval <= 0 {
		interval = time.Second / 60
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return v.Reader.Close(context.Background())
		case <-ticker.C:
			snap, err := v.Reader.MaybeGet(ctx, v.ClientPID, v.Broadcast)
			if err != nil {
				errs.Log(fmt.Errorf("app: viewer poll: %w", err))
				continue
			}
			if v.Sink != nil {
				v.Sink.Frame(snap)
			}
		}
	}
}
