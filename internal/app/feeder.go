// Package app assembles the pipeline spec §2 calls the core of this
// module's data flow: input -> orchestrator -> view -> page source ->
// renderer -> SHM writer -> SHM reader -> VR engine. kneeboard.State's
// own doc comment names the long-lived singletons (APIEvent server,
// input adapters, renderer, SHM writer) as "constructed by main";
// this package is that construction, grounded on the teacher's
// (cogentcore.org/core) App-struct-owns-every-singleton-plus-a-Run-
// loop convention rather than main() wiring everything inline.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kneeboard.dev/core/apievent"
	"kneeboard.dev/core/eventbus"
	"kneeboard.dev/core/geom"
	"kneeboard.dev/core/ids"
	"kneeboard.dev/core/input"
	"kneeboard.dev/core/internal/errs"
	"kneeboard.dev/core/kneeboard"
	"kneeboard.dev/core/pagesource"
	"kneeboard.dev/core/render"
	"kneeboard.dev/core/shm"
	"kneeboard.dev/core/view"
	"kneeboard.dev/core/vr"
)

// HMDSource supplies the runtime's current head pose and seated eye
// height. A real implementation wraps the OpenVR/OpenXR overlay API,
// whose injection bootstrap is out of scope per spec §1; Feeder only
// needs the per-frame pose it produces. ok is false when no VR
// runtime is attached (a desktop-only session), in which case Feeder
// still publishes using the zero pose so the SHM channel stays live
// for a desktop-mirror consumer.
type HMDSource interface {
	Pose() (pose vr.HMDPose, eyeHeight float32, ok bool)
}

// LayerSettingsSource supplies the per-view VR placement/zoom/opacity
// config a profile would otherwise carry. Layer placement lives in
// the persisted JSON settings format spec.md §1 excludes as a format
// (not as a concern), so Feeder takes this as an injected seam rather
// than parsing settings itself; a real caller backs it with its own
// profile reader. viewIndex is the position in kneeboard.State.Views().
type LayerSettingsSource func(viewIndex int) vr.LayerConfig

// FeederConfig bundles the tunables Feeder needs beyond config.Config.
type FeederConfig struct {
	// LayerPixelSize is the pixel size every published layer texture
	// is rendered at (spec.md treats per-layer pixel density as
	// implementation-defined; a fixed size keeps the texture pool
	// simple, matching the source's DEFAULT_D3D11_POOL_SIZE policy of
	// a stable, reused allocation rather than one sized per-frame).
	LayerPixelSize geom.Size[int]
	// PublishInterval paces the render/publish loop. Defaults to 60Hz.
	PublishInterval time.Duration
	// RescanInterval paces DirectInputAdapter.Rescan. A real build
	// instead drives this from WM_DEVICECHANGE notifications (spec
	// §4.K); this package has no window to receive them from, so
	// polling is the grounded fallback.
	RescanInterval time.Duration
}

func (c FeederConfig) withDefaults() FeederConfig {
	if c.PublishInterval <= 0 {
		c.PublishInterval = time.Second / 60
	}
	if c.RescanInterval <= 0 {
		c.RescanInterval = 2 * time.Second
	}
	if c.LayerPixelSize.IsEmpty() {
		c.LayerPixelSize = geom.Size[int]{Width: 1024, Height: 768}
	}
	return c
}

// Feeder is the feeder-process half of the pipeline: it owns the
// orchestrator, input adapters, VR resolver, and SHM writer, and
// drives one goroutine per independent concern (API event ingestion,
// mailslot serving) plus a single select loop for rescan/publish
// ticks, the way the teacher's App type drives its event/render/
// layout concerns as separate goroutines feeding one coordinator.
type Feeder struct {
	State     *kneeboard.State
	Writer    *shm.Writer
	Resources *render.DXResources
	VR        *vr.VRKneeboard
	Input     *input.DirectInputAdapter
	APIQueue  *apievent.OrderedQueue
	APIServer *apievent.Server
	HMD       HMDSource
	Layers    LayerSettingsSource

	cfg FeederConfig

	receiver eventbus.EventReceiver

	subMu      sync.Mutex
	subscribed map[input.DeviceID]bool
}

// NewFeeder builds a Feeder over the given singletons and wires every
// current tab source's NeedsRepaint/ContentChanged events to
// state.RequestRepaint, plus re-wiring on every profile switch (spec
// §4.L: "Profile switching rebuilds tabs, views... and re-emits
// evCurrentProfileChanged").
func NewFeeder(
	state *kneeboard.State,
	writer *shm.Writer,
	resources *render.DXResources,
	vrEngine *vr.VRKneeboard,
	inputAdapter *input.DirectInputAdapter,
	apiQueue *apievent.OrderedQueue,
	apiServer *apievent.Server,
	hmd HMDSource,
	layers LayerSettingsSource,
	cfg FeederConfig,
) *Feeder {
	f := &Feeder{
		State:      state,
		Writer:     writer,
		Resources:  resources,
		VR:         vrEngine,
		Input:      inputAdapter,
		APIQueue:   apiQueue,
		APIServer:  apiServer,
		HMD:        hmd,
		Layers:     layers,
		cfg:        cfg.withDefaults(),
		subscribed: make(map[input.DeviceID]bool),
	}
	f.wireTabs()
	eventbus.Listen(&f.receiver, state.CurrentProfileChanged(), func(kneeboard.ProfileChanged) { f.wireTabs() })
	return f
}

// wireTabs attaches a repaint listener to every current tab's source.
// Called at construction and again after every profile switch, since
// SwitchProfile replaces the tabs list wholesale.
func (f *Feeder) wireTabs() {
	for _, tab := range f.State.Tabs() {
		src := tab.Source
		eventbus.Listen(&f.receiver, src.NeedsRepaint(), func(struct{}) { f.State.RequestRepaint() })
		eventbus.Listen(&f.receiver, src.ContentChangedEvent(), func(pagesource.ContentChanged) { f.State.RequestRepaint() })
	}
}

// rescanInput re-enumerates input devices and subscribes any newly-
// attached device's Fired event, translating its bound action name to
// a kneeboard.UserAction via kneeboard.ParseUserAction and
// dispatching it against State (spec §4.K's binding-match output
// feeding spec §4.L's dispatch).
func (f *Feeder) rescanInput(ctx context.Context) {
	if err := f.Input.Rescan(ctx); err != nil {
		errs.Log(fmt.Errorf("app: input rescan: %w", err))
		return
	}

	f.subMu.Lock()
	defer f.subMu.Unlock()
	for id, dev := range f.Input.Devices() {
		if f.subscribed[id] {
			continue
		}
		f.subscribed[id] = true
		eventbus.Listen(&f.receiver, dev.Fired(), func(ev input.ActionFired) {
			action, ok := kneeboard.ParseUserAction(ev.Action)
			if !ok {
				errs.Log(fmt.Errorf("app: device %s fired unbound action %q", ev.Device, ev.Action))
				return
			}
			f.State.Dispatch(ctx, action)
		})
	}
}

// Run drives the Feeder until ctx is cancelled: it serves the
// APIEvent mailslot and ordered queue on their own goroutines,
// rescans input on a timer, and renders+publishes a fresh SHM frame
// whenever State reports a repaint is needed.
func (f *Feeder) Run(ctx context.Context) error {
	apiDone := make(chan error, 1)
	go func() { apiDone <- f.APIQueue.Run(ctx) }()

	stop := make(chan struct{})
	serveDone := make(chan error, 1)
	go func() { serveDone <- f.APIServer.Serve(stop) }()
	go func() { <-ctx.Done(); close(stop) }()

	rescan := time.NewTicker(f.cfg.RescanInterval)
	defer rescan.Stop()
	publish := time.NewTicker(f.cfg.PublishInterval)
	defer publish.Stop()

	f.rescanInput(ctx)

	for {
		select {
		case <-ctx.Done():
			f.Input.Close()
			errs.Log(f.APIServer.Close())
			return ctx.Err()

		case <-rescan.C:
			f.rescanInput(ctx)

		case <-publish.C:
			if !f.State.IsRepaintNeeded() {
				continue
			}
			if err := f.publishFrame(ctx); err != nil {
				errs.Log(fmt.Errorf("app: publish frame: %w", err))
				continue
			}
			f.State.Repainted()

		case err := <-apiDone:
			if err != nil && err != context.Canceled {
				return err
			}

		case err := <-serveDone:
			if err != nil {
				return err
			}
		}
	}
}

// publishFrame resolves every active view's VR placement and renders
// each into its own SHM pool texture in a single Writer.Publish call
// (spec §4.D). Disabled layers (per LayerSettingsSource) are left out
// of the published layer count entirely, matching ResolveFrame's own
// enabled-filtering.
func (f *Feeder) publishFrame(ctx context.Context) error {
	views := f.State.Views()
	if len(views) == 0 {
		return nil
	}

	hmd, eyeHeight, _ := f.HMD.Pose()

	layerConfigs := make([]vr.LayerConfig, len(views))
	viewByLayerID := make(map[ids.LayerID]*view.KneeboardView, len(views))
	for i := range views {
		cfg := vr.LayerConfig{Enabled: true, ZoomScale: 1, GazeTargetScale: 1, OpacityNormal: 1, OpacityGaze: 1}
		if f.Layers != nil {
			cfg = f.Layers(i)
		}
		cfg.ID = ids.LayerID(i + 1)
		layerConfigs[i] = cfg
		viewByLayerID[cfg.ID] = views[i]
	}

	settings := vr.GlobalSettings{
		RecenterCount:        f.State.RecenterCount(),
		ForceZoom:            f.State.ForceZoomEnabled(),
		EnableGazeInputFocus: true,
		GlobalInputLayerID:   ids.LayerID(1),
	}
	resolved := f.VR.ResolveFrame(settings, hmd, eyeHeight, layerConfigs)
	if len(resolved) == 0 {
		return nil
	}

	area := geom.Rect[int]{Size: f.cfg.LayerPixelSize}

	renderFunc := func(layerIndex int, tex shm.GPUTexture) (shm.Layer, error) {
		res := resolved[layerIndex]
		v, ok := viewByLayerID[res.Config.ID]
		if !ok {
			return shm.Layer{}, fmt.Errorf("app: no view for resolved layer %d", res.Config.ID)
		}

		target, err := f.Resources.TargetFor(tex, f.cfg.LayerPixelSize)
		if err != nil {
			return shm.Layer{}, err
		}
		metrics := v.Layout(area)
		if err := v.Render(ctx, target, metrics); err != nil {
			return shm.Layer{}, err
		}

		return shm.Layer{
			LayerID:        uint64(res.Config.ID),
			EnabledInVR:    true,
			FullCanvas:     area,
			ContentSubrect: area,
			Pose: shm.VRPose{
				X: res.Params.KneeboardPosition.X,
				Y: res.Params.KneeboardPosition.Y,
				Z: res.Params.KneeboardPosition.Z,
				// Only yaw is recoverable from vr.Mat3 today (its one
				// decomposition helper); pitch/roll are left zero
				// rather than guessed.
				RY: res.Params.KneeboardRotation.Yaw(),
			},
			PhysicalSize:    res.Params.KneeboardSize,
			MaxPhysicalSize: res.Config.NormalSize,
			Opacity:         shm.Opacity{Normal: res.Config.OpacityNormal, Gaze: res.Config.OpacityGaze},
			ZoomScale:       res.Config.ZoomScale,
			GazeTargetScale: res.Config.GazeTargetScale,
			EnableGazeZoom:  res.Config.EnableGazeZoom,
			DisplayArea:     shm.DisplayFull,
		}, nil
	}

	vrSettings := shm.VRSettings{
		RecenterCount:  settings.RecenterCount,
		ForceZoom:      settings.ForceZoom,
		GazeInputFocus: settings.EnableGazeInputFocus,
	}
	return f.Writer.Publish(ctx, len(resolved), uint64(f.VR.ActiveViewID()), vrSettings, renderFunc)
}

// Close detaches every event listener this Feeder registered.
func (f *Feeder) Close() {
	f.receiver.Close()
}
