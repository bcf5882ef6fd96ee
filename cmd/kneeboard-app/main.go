// Command kneeboard-app is the feeder process: it owns the
// orchestrator, input adapters, VR resolver, and SHM writer, and
// drives the render/publish loop spec §2 calls the core of this
// module's data flow. Real D3D11 device creation (D3D11CreateDevice
// plus adapter enumeration) and OpenVR/OpenXR overlay bootstrap are
// out of scope per spec §1 — this command wires the rest of the
// pipeline around whatever DXResources/HMDSource a real launcher
// supplies, the same bootstrap boundary render.NewDXResources already
// documents.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"unsafe"

	"github.com/spf13/cobra"

	"kneeboard.dev/core/apievent"
	"kneeboard.dev/core/config"
	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
	"kneeboard.dev/core/input"
	"kneeboard.dev/core/internal/app"
	"kneeboard.dev/core/internal/logx"
	"kneeboard.dev/core/kneeboard"
	"kneeboard.dev/core/pagesource"
	"kneeboard.dev/core/render"
	"kneeboard.dev/core/shm"
	"kneeboard.dev/core/vr"
)

const reverseDomain = "com.openkneeboard"

// zeroHMD reports no VR runtime attached, so the feeder still
// publishes a desktop-mirror frame with no pose resolution. A real
// launcher supplies its own app.HMDSource backed by the OpenVR/OpenXR
// overlay it has already bootstrapped.
type zeroHMD struct{}

func (zeroHMD) Pose() (vr.HMDPose, float32, bool) { return vr.HMDPose{}, 0, false }

// blankPage is a single-page placeholder Source standing in for the
// PDF/folder/browser sources a real launcher builds from its own
// tabs list (spec §1's PDF/WIC/CEF parsing is out of scope); it gives
// the pipeline something to render end to end.
type blankPage struct {
	pagesource.Base
	id   ids.PageID
	size geom.Size[int]
}

func newBlankPage(size geom.Size[int]) *blankPage {
	return &blankPage{id: ids.NextPageID(), size: size}
}

func (p *blankPage) GetPageCount() int          { return 1 }
func (p *blankPage) GetPageIDs() []ids.PageID   { return []ids.PageID{p.id} }
func (p *blankPage) GetPreferredSize(id ids.PageID) (pagesource.PreferredSize, bool) {
	if id != p.id {
		return pagesource.PreferredSize{}, false
	}
	return pagesource.PreferredSize{PixelSize: p.size, ScalingKind: pagesource.ScaleToFit}, true
}
func (p *blankPage) RenderPage(rc pagesource.RenderContext, id ids.PageID) error { return nil }

func main() {
	var configPath string
	var verbose bool
	root := &cobra.Command{
		Use:   "kneeboard-app",
		Short: "run the kneeboard feeder process",
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
			return fmt.Errorf("kneeboard-app: load config: %w", err)
		}
	}

	tabs := []*kneeboard.Tab{kneeboard.NewTab("Welcome", newBlankPage(geom.Size[int]{Width: 1024, Height: 768}))}
	state := kneeboard.NewState(tabs, "default")

	// Real device/context pointers come from the platform's own
	// D3D11CreateDevice bootstrap, out of scope here; nil leaves
	// DXResources usable for layout/Render calls that don't reach the
	// real COM vtable.
	resources := render.NewDXResources(unsafe.Pointer(nil), unsafe.Pointer(nil))

	writer, err := shm.NewWriter(reverseDomain, resources, cfg.TexturePoolSize, cfg.SHMSlackBytes)
	if err != nil {
		return fmt.Errorf("kneeboard-app: new SHM writer: %w", err)
	}
	defer writer.Close()

	enum, err := input.NewWindowsEnumerator()
	if err != nil {
		return fmt.Errorf("kneeboard-app: new input enumerator: %w", err)
	}
	inputAdapter := input.NewDirectInputAdapter(enum)
	defer inputAdapter.Close()

	vrEngine := vr.NewVRKneeboard()

	apiQueue := apievent.NewOrderedQueue(state.HandleAPIEvent, nil)
	apiServer, err := apievent.NewServer(reverseDomain, cfg.MailslotSuffix, apiQueue)
	if err != nil {
		return fmt.Errorf("kneeboard-app: new APIEvent server: %w", err)
	}

	feeder := app.NewFeeder(state, writer, resources, vrEngine, inputAdapter, apiQueue, apiServer, zeroHMD{}, nil, app.FeederConfig{
		LayerPixelSize: geom.Size[int]{Width: 1024, Height: 768},
	})
	defer feeder.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return feeder.Run(ctx)
}
