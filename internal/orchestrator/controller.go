package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
	"github.com/ayusman/autoframe/internal/guidance"
	"github.com/ayusman/autoframe/internal/log"
	"github.com/ayusman/autoframe/internal/motion"
	"github.com/ayusman/autoframe/internal/recommend"
	"github.com/ayusman/autoframe/internal/scene"
	"github.com/ayusman/autoframe/internal/shutter"
	"github.com/ayusman/autoframe/internal/tracker"
	"github.com/ayusman/autoframe/internal/zoom"
)

// ErrAlreadyRunning is returned by Run when the loop is already running or has
// already finished.
var ErrAlreadyRunning = errors.New("controller already started")

// StabilitySource reports the device stability level.
type StabilitySource interface {
	Level() motion.Level
	// StableSince returns when the device last became Stable and whether it is
	// Stable now.
	StableSince() (time.Time, bool)
}

// Deps are the collaborators driven by the controller. Zoom and Sink are optional.
type Deps struct {
	Engine    recommend.Engine
	Tracker   tracker.Tracker
	Stability StabilitySource
	Zoom      zoom.Actuator
	Shutter   shutter.Shutter
	Sink      Sink
	// Now is the controller clock; nil means time.Now.
	Now func() time.Time
}

// Controller is the capture state machine. All state below the loop marker is
// owned by the loop goroutine; other goroutines interact through Submit, Reset,
// SetEnabled and Snapshot.
type Controller struct {
	cfg  Config
	deps Deps
	sink Sink
	now  func() time.Time
	log  *slog.Logger

	inbox  chan *frame.Frame
	events chan any
	done   chan struct{}

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	started atomic.Bool
	closed  atomic.Bool
	enabled atomic.Bool
	drops   atomic.Uint64

	mu   sync.RWMutex
	snap Snapshot

	// loop state
	phase      Phase
	region     geom.Region
	hasRegion  bool
	gen        uint64
	sampling   bool
	progress   progress
	level      motion.Level
	guide      guidance.State
	sceneScore float64
	zoomTarget float64
	baseZoom   float64

	opCtx    context.Context
	opCancel context.CancelFunc

	limiter   *rate.Limiter
	scene     *scene.Detector
	filter    *guidance.BoxFilter
	evaluator *guidance.Evaluator

	stats     Stats
	lastFeed  time.Time
	lastInfer time.Time
}

// New creates a Controller in the Idle phase. The zoom ratio at this point is the
// baseline restored after every capture.
func New(cfg Config, deps Deps) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Engine == nil || deps.Tracker == nil || deps.Stability == nil || deps.Shutter == nil {
		return nil, errors.New("orchestrator: engine, tracker, stability and shutter are required")
	}

	c := &Controller{
		cfg:       cfg,
		deps:      deps,
		sink:      deps.Sink,
		now:       deps.Now,
		log:       log.With("component", "orchestrator"),
		inbox:     make(chan *frame.Frame, 1),
		events:    make(chan any, 16),
		done:      make(chan struct{}),
		scene:     scene.NewDetector(cfg.SignatureSize, cfg.SceneChangeThreshold),
		filter:    guidance.NewBoxFilter(cfg.FilterAlpha),
		evaluator: guidance.NewEvaluator(cfg.Guidance),
		baseZoom:  1,
	}
	if c.sink == nil {
		c.sink = NopSink{}
	}
	if c.now == nil {
		c.now = time.Now
	}

	limit := rate.Inf
	if cfg.MaxFPS > 0 {
		limit = rate.Limit(cfg.MaxFPS)
	}
	c.limiter = rate.NewLimiter(limit, 1)

	if deps.Zoom != nil {
		c.baseZoom = deps.Zoom.Ratio()
	}

	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	c.opCtx, c.opCancel = context.WithCancel(c.rootCtx)
	c.enabled.Store(true)
	c.level = deps.Stability.Level()
	c.progress.reset(c.now())
	c.publish(c.now())
	return c, nil
}

// Submit hands a frame to the loop without blocking. A frame still waiting in the
// mailbox is replaced and released. The controller takes ownership of f.
func (c *Controller) Submit(f *frame.Frame) {
	if f == nil {
		return
	}
	if c.closed.Load() {
		f.Close()
		return
	}
	for {
		select {
		case c.inbox <- f:
			// shutdown may have drained the mailbox before this send.
			if c.closed.Load() {
				c.drainInbox()
			}
			return
		default:
		}
		select {
		case old := <-c.inbox:
			old.Close()
			c.drops.Add(1)
		default:
		}
	}
}

// Run processes frames and completions until ctx is cancelled. On return all
// actuator work has stopped and the phase is Idle.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.shutdown()

	c.log.Info("controller started", "phase", c.phase, "base_zoom", c.baseZoom)

	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-c.inbox:
			c.handleFrame(f, c.now())
		case ev := <-c.events:
			c.handleEvent(ev, c.now())
		}
	}
}

// Reset clears the current region, cancels pending actuator work and returns
// to Idle.
func (c *Controller) Reset() {
	c.post(resetRequest{})
}

// SetEnabled turns frame processing on or off. Disabling also resets.
func (c *Controller) SetEnabled(enabled bool) {
	if c.enabled.Swap(enabled) == enabled {
		return
	}
	c.log.Info("controller enabled changed", "enabled", enabled)
	if !enabled {
		c.Reset()
	}
}

// Enabled reports whether frames are being processed.
func (c *Controller) Enabled() bool {
	return c.enabled.Load()
}

// Snapshot returns the state published after the last loop step.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.snap
	if s.Region != nil {
		r := *s.Region
		s.Region = &r
	}
	s.Enabled = c.enabled.Load()
	s.Stats.Drops = c.drops.Load()
	return s
}

func (c *Controller) shutdown() {
	c.closed.Store(true)
	c.rootCancel()
	close(c.done)
	c.wg.Wait()

	c.drainInbox()

	now := c.now()
	c.gen++
	c.sampling = false
	c.clearRegion(now)
	c.transition(Idle, "shutdown", now)
	c.log.Info("controller stopped", "samples", c.stats.Samples, "captures", c.stats.Captures)
}

func (c *Controller) drainInbox() {
	for {
		select {
		case f := <-c.inbox:
			f.Close()
		default:
			return
		}
	}
}

// spawn runs fn on a worker goroutine tracked by shutdown.
func (c *Controller) spawn(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// post delivers a completion to the loop, or drops it once the loop has stopped.
func (c *Controller) post(ev any) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) publish(now time.Time) {
	s := Snapshot{
		Phase:          c.phase,
		Level:          c.level,
		SuggestedZoom:  c.guide.SuggestedZoom,
		CenterDistance: c.guide.CenterDistance,
		ShouldSnap:     c.guide.ShouldSnap,
		SceneScore:     c.sceneScore,
		Generation:     c.gen,
		Stats:          c.stats,
		Timestamp:      now,
	}
	if c.hasRegion {
		r := c.region
		s.Region = &r
	}

	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

// progress is the best centering error since the region was proposed and when
// it last improved.
type progress struct {
	best float64
	last time.Time
}

func (p *progress) reset(now time.Time) {
	p.best = 1
	p.last = now
}

// observe records progress when err is within slack of the best error.
func (p *progress) observe(err float64, now time.Time, slack float64) {
	if err <= p.best*slack {
		if err < p.best {
			p.best = err
		}
		p.last = now
	}
}

// stalled reports whether the grace period has passed without progress and the
// error has grown past worsen times the best.
func (p *progress) stalled(err float64, now time.Time, grace time.Duration, worsen float64) bool {
	return now.Sub(p.last) > grace && err > p.best*worsen
}
