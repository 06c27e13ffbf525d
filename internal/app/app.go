// Package app wires the camera, the stability monitor, the recommendation engine
// and the capture controller into the running autoframe service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/autoframe/internal/capture"
	"github.com/ayusman/autoframe/internal/config"
	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/hook"
	"github.com/ayusman/autoframe/internal/log"
	"github.com/ayusman/autoframe/internal/motion"
	"github.com/ayusman/autoframe/internal/orchestrator"
	"github.com/ayusman/autoframe/internal/recommend"
	"github.com/ayusman/autoframe/internal/server"
	"github.com/ayusman/autoframe/internal/shutter"
	"github.com/ayusman/autoframe/internal/store"
	"github.com/ayusman/autoframe/internal/tracker"
	"github.com/ayusman/autoframe/internal/zoom"
)

// enabledKey persists the enable toggle across runs.
const enabledKey = "enabled"

// Overrides replace the components New would build from the settings. Zero
// fields are built as usual.
type Overrides struct {
	Camera  capture.Camera
	Source  motion.Source
	Engine  recommend.Engine
	Tracker tracker.Tracker
	Shutter shutter.Shutter
	Zoom    zoom.Actuator
	// Sinks receive controller notifications next to the built-in ones.
	Sinks []orchestrator.Sink
}

// App is the running autoframe service.
type App struct {
	settings config.Settings
	log      *slog.Logger

	store      *store.Store
	camera     capture.Camera
	digital    *capture.DigitalZoom
	preview    *frame.Holder
	engine     recommend.Engine
	source     motion.Source
	monitor    *motion.Monitor
	controller *orchestrator.Controller
	journal    *Journal
	hooks      *hook.Sink
	hub        *server.GuidanceHub
	server     *server.Server
}

// New builds the service described by settings.
func New(settings config.Settings, ov Overrides) (a *App, err error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(settings.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	a = &App{
		settings: settings,
		log:      log.With("component", "app"),
		preview:  &frame.Holder{},
		hub:      server.NewGuidanceHub(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.store, err = store.New(filepath.Join(settings.DataDir, "autoframe.db"))
	if err != nil {
		return nil, err
	}

	a.camera = ov.Camera
	if a.camera == nil {
		a.camera = capture.NewCameraWithOptions(capture.Options{
			DeviceID: settings.Camera.ID,
			Width:    settings.Camera.Width,
			Height:   settings.Camera.Height,
			FPS:      settings.Camera.ActiveFPS,
		})
	}

	actuator := ov.Zoom
	if actuator == nil {
		actuator, err = a.buildZoom()
		if err != nil {
			return nil, err
		}
	}

	a.engine = ov.Engine
	if a.engine == nil {
		a.engine, err = recommend.New(settings.RecommendConfig())
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}

	trk := ov.Tracker
	if trk == nil {
		trk = a.buildTracker()
	}

	a.source = ov.Source
	if a.source == nil {
		a.source = a.buildSource()
	}
	a.monitor = motion.NewMonitor(motion.NewClassifier(settings.MotionConfig()), nil)

	sh := ov.Shutter
	if sh == nil {
		dir := settings.Path(settings.Shutter.Dir, "captures")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create capture dir: %w", err)
		}
		sh = shutter.NewFileShutter(dir, a.preview, settings.Shutter.Quality)
	}

	a.journal = NewJournal(a.store, settings.Engine.Kind, log.With("component", "journal"))

	hooks := hook.NewManager(settings.Path(settings.Hooks.Dir, "hooks"))
	if err := hooks.Discover(); err != nil {
		a.log.Warn("hook discovery failed", "dir", hooks.Dir(), "error", err)
	}
	a.hooks = hook.NewSink(hooks, hook.NewExecutor(time.Duration(settings.Hooks.TimeoutMs)*time.Millisecond))

	sinks := orchestrator.Sinks{a.journal, a.hooks, a.hub}
	sinks = append(sinks, ov.Sinks...)

	a.controller, err = orchestrator.New(settings.OrchestratorConfig(), orchestrator.Deps{
		Engine:    a.engine,
		Tracker:   trk,
		Stability: a.monitor,
		Zoom:      actuator,
		Shutter:   sh,
		Sink:      sinks,
	})
	if err != nil {
		return nil, err
	}
	a.controller.SetEnabled(a.store.Settings().Bool(enabledKey, true))

	if settings.Listen != "" {
		a.server = server.New(server.Config{
			StaticDir:  settings.WebDir,
			Store:      a.store,
			Controller: a,
			Preview:    a.preview,
			Guidance:   a.hub,
			StreamFPS:  float64(settings.Camera.ActiveFPS),
		})
	}

	a.log.Info("app configured",
		"engine", settings.Engine.Kind,
		"tracker", settings.Tracker.Kind,
		"zoom", settings.Zoom.Mode,
		"imu", settings.IMU.Source,
		"hooks", len(hooks.List()),
	)
	return a, nil
}

func (a *App) buildZoom() (zoom.Actuator, error) {
	z := a.settings.Zoom
	switch z.Mode {
	case config.ZoomDigital:
		a.digital = capture.NewDigitalZoom(z.Max)
		return a.digital, nil
	case config.ZoomOptical:
		cam, ok := a.camera.(capture.PropertyCamera)
		if !ok {
			return nil, errors.New("zoom: optical mode needs a device camera")
		}
		return capture.NewOpticalZoom(cam, 0, z.Max), nil
	default:
		return nil, nil
	}
}

func (a *App) buildTracker() tracker.Tracker {
	t := a.settings.Tracker
	if t.Kind == config.TrackerMIL {
		return tracker.NewMIL()
	}
	return tracker.NewShiftTracker(a.settings.Controller.SignatureSize, t.SearchRadius, t.LostCost)
}

func (a *App) buildSource() motion.Source {
	imu := a.settings.IMU
	switch imu.Source {
	case config.IMUSerial:
		return motion.NewSerialSource(motion.SerialOptions{Path: imu.Port, BaudRate: imu.BaudRate})
	case config.IMUStdin:
		return &motion.ReaderSource{R: os.Stdin}
	default:
		return &motion.StillSource{Interval: 10 * time.Millisecond}
	}
}

// Run opens the camera and runs every component until ctx is cancelled or one
// of them fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer a.camera.Close()

	g, ctx := errgroup.WithContext(ctx)
	samples := make(chan motion.Sample, 64)

	g.Go(func() error {
		defer close(samples)
		return ignoreCanceled(a.source.Run(ctx, samples))
	})
	g.Go(func() error { return ignoreCanceled(a.monitor.Run(ctx, samples)) })
	g.Go(func() error { return a.journal.Run(ctx) })
	g.Go(func() error { return a.controller.Run(ctx) })
	g.Go(func() error { return a.runPipeline(ctx) })
	if a.server != nil {
		g.Go(func() error {
			a.log.Info("http server listening", "addr", a.settings.Listen)
			return a.server.Run(ctx, a.settings.Listen)
		})
	}

	err := g.Wait()
	a.hub.Close()
	a.hooks.Wait()
	a.log.Info("app stopped", "error", err)
	return err
}

// Close releases the engine, the hooks and the store.
func (a *App) Close() error {
	var errs []error
	if a.hooks != nil {
		a.hooks.Close()
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// Snapshot returns the controller state.
func (a *App) Snapshot() orchestrator.Snapshot {
	return a.controller.Snapshot()
}

// SetEnabled toggles the controller and remembers the choice.
func (a *App) SetEnabled(enabled bool) {
	a.controller.SetEnabled(enabled)
	if err := a.store.Settings().SetBool(enabledKey, enabled); err != nil {
		a.log.Warn("persist enabled failed", "error", err)
	}
}

// Reset drops the current suggestion.
func (a *App) Reset() {
	a.controller.Reset()
}

// Controller returns the capture controller.
func (a *App) Controller() *orchestrator.Controller {
	return a.controller
}

// Store returns the capture journal store.
func (a *App) Store() *store.Store {
	return a.store
}

// Journal returns the journal sink.
func (a *App) Journal() *Journal {
	return a.journal
}

// Monitor returns the stability monitor.
func (a *App) Monitor() *motion.Monitor {
	return a.monitor
}

// Preview returns the holder of the latest (zoomed) frame.
func (a *App) Preview() *frame.Holder {
	return a.preview
}

// Handler returns the HTTP handler, or nil when the server is disabled.
func (a *App) Handler() *server.Server {
	return a.server
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
