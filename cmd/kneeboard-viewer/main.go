// Command kneeboard-viewer is the consumer-process half of the
// pipeline: it attaches to an already-running kneeboard-app's SHM
// region and pulls fresh frames at its own cadence. A real VR overlay
// or desktop-mirror window submits every Snapshot's client-local
// textures to its own swapchain (out of scope per spec §1, same as
// kneeboard-app's D3D11 device bootstrap); this command's FrameSink
// just counts frames so the pipeline has a real, runnable consumer
// end to end.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/spf13/cobra"

	"kneeboard.dev/core/config"
	"kneeboard.dev/core/internal/app"
	"kneeboard.dev/core/internal/logx"
	"kneeboard.dev/core/render"
	"kneeboard.dev/core/shm"
)

const reverseDomain = "com.openkneeboard"

// countingSink logs a line every logInterval frames rather than on
// every single frame, matching the source's own low-chatter console
// logging for a tight polling loop.
type countingSink struct {
	count       atomic.Uint64
	logInterval uint64
}

func (s *countingSink) Frame(snap *shm.Snapshot) {
	n := s.count.Add(1)
	if s.logInterval != 0 && n%s.logInterval == 0 {
		slog.Info("viewer received frame", "count", n, "sequence", snap.Sequence, "layers", snap.Frame.Header.LayerCount)
	}
}

func main() {
	var configPath string
	var verbose bool
	root := &cobra.Command{
		Use:   "kneeboard-viewer",
		Short: "attach to a running kneeboard-app's SHM region and consume frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logx.SetLevel(slog.LevelDebug)
			}
			return run(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to the TOML tuning config (defaults to built-in defaults)")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("kneeboard-viewer: load config: %w", err)
		}
	}

	// Real device/context pointers come from the viewer process's own
	// D3D11CreateDevice bootstrap, out of scope here — same boundary
	// kneeboard-app's writer-side DXResources documents.
	resources := render.NewDXResources(unsafe.Pointer(nil), unsafe.Pointer(nil))
	clientDevice := render.NewClientDevice(resources)

	staleAfter := time.Duration(cfg.StaleSnapshotMillis) * time.Millisecond
	reader, err := shm.OpenReader(reverseDomain, clientDevice, staleAfter)
	if err != nil {
		return fmt.Errorf("kneeboard-viewer: open SHM reader: %w", err)
	}

	sink := &countingSink{logInterval: 60}

	// A standalone viewer process has no direct handle to the
	// feeder's Writer, so it has nowhere to route MaybeGet's
	// BroadcastSeen callback; app.InProcessBroadcast exists for a
	// combined demo process sharing one Writer in-process instead.
	// spec.md only specifies the broadcast region's contents, not its
	// cross-process transport (see internal/app/viewer.go), so a
	// no-op here just means this reader's liveness isn't reflected
	// back to the feeder's reuse-safety check.
	viewer := app.NewViewer(reader, uint32(os.Getpid()), sink, func(uint32, uint64) {})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return viewer.Run(ctx)
}
