package orchestrator

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
	"github.com/ayusman/autoframe/internal/guidance"
	"github.com/ayusman/autoframe/internal/motion"
	"github.com/ayusman/autoframe/internal/recommend"
	"github.com/ayusman/autoframe/internal/scene"
	"github.com/ayusman/autoframe/internal/shutter"
	"github.com/ayusman/autoframe/internal/zoom"
)

// Completions posted back to the loop. gen is the generation the work was
// started under; a completion from an older generation is stale.
type (
	recommendationDone struct {
		gen    uint64
		frame  *frame.Frame
		result recommend.Result
		err    error
	}
	zoomDone struct {
		gen uint64
		err error
	}
	captureDone struct {
		gen  uint64
		shot shutter.Shot
		err  error
	}
	restoreDone struct {
		gen uint64
	}
	resetRequest struct{}
)

func (c *Controller) handleFrame(f *frame.Frame, now time.Time) {
	defer f.Close()

	if !c.lastFeed.IsZero() && now.After(c.lastFeed) {
		c.stats.FeedHz = 1 / now.Sub(c.lastFeed).Seconds()
	}
	c.lastFeed = now

	if !c.enabled.Load() {
		c.publish(now)
		return
	}
	if !c.limiter.AllowN(now, 1) {
		c.stats.RateLimited++
		c.publish(now)
		return
	}

	sig, err := scene.Compute(f, c.cfg.SignatureSize)
	if err != nil {
		c.drops.Add(1)
		c.log.Debug("frame dropped", "error", err)
		c.publish(now)
		return
	}
	changed, score := c.scene.Observe(sig)
	c.sceneScore = score
	c.level = c.deps.Stability.Level()

	switch c.phase {
	case Idle:
		if c.canSample(now) {
			c.startRecommendation(f, now)
		}
	case Proposed, Aligning:
		c.track(f, changed, now)
	}

	c.publish(now)
	c.sink.FrameProcessed(c.Snapshot())
}

// canSample is the sampling gate: Idle, no region, nothing in flight and the
// device Stable for the whole stable window.
func (c *Controller) canSample(now time.Time) bool {
	if c.phase != Idle || c.hasRegion || c.sampling {
		return false
	}
	since, stable := c.deps.Stability.StableSince()
	return stable && now.Sub(since) >= c.cfg.StableWindow
}

func (c *Controller) startRecommendation(f *frame.Frame, now time.Time) {
	c.sampling = true
	c.stats.Samples++

	gen, ctx := c.gen, c.opCtx
	full := f.Clone()
	input := f.Downscale(c.cfg.DownscaleLongSide)
	timeout := c.cfg.RecommendTimeout
	engine := c.deps.Engine

	c.log.Debug("requesting recommendation", "generation", gen, "width", input.Width, "height", input.Height)

	c.spawn(func() {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		res, err := engine.Predict(ctx, input)
		c.post(recommendationDone{gen: gen, frame: full, result: res, err: err})
	})
}

func (c *Controller) track(f *frame.Frame, sceneChanged bool, now time.Time) {
	if sceneChanged {
		c.reacquire(now, "scene_change")
		return
	}

	region, ok := c.deps.Tracker.Update(f)
	if !ok {
		c.reacquire(now, "tracker_lost")
		return
	}
	c.region = region
	c.hasRegion = true

	if c.phase == Proposed {
		c.transition(Aligning, "tracking", now)
	}

	dist := region.CenterDistance()
	c.progress.observe(dist, now, c.cfg.ProgressSlack)
	if c.progress.stalled(dist, now, c.cfg.ProgressGrace, c.cfg.ProgressWorsen) {
		c.log.Debug("progress stalled", "error", dist, "best", c.progress.best)
		c.reacquire(now, "progress_stalled")
		return
	}

	c.guide = c.evaluator.Update(region, c.level, now)
	if c.guide.ShouldSnap {
		c.startZoom(c.guide.SuggestedZoom, now)
	}
}

// reacquire drops the region so a fresh suggestion can be requested.
func (c *Controller) reacquire(now time.Time, reason string) {
	c.gen++
	c.clearRegion(now)
	c.transition(Idle, reason, now)
}

func (c *Controller) clearRegion(now time.Time) {
	c.region = geom.Region{}
	c.hasRegion = false
	c.guide = guidance.State{}
	c.deps.Tracker.Reset()
	c.evaluator.Reset()
	c.progress.reset(now)
}

func (c *Controller) startZoom(suggested float64, now time.Time) {
	target := math.Min(suggested, c.cfg.ZoomCap)
	c.zoomTarget = target
	c.transition(Zooming, "locked", now)

	gen, ctx := c.gen, c.opCtx
	actuator := c.deps.Zoom
	steps, delay := c.cfg.ZoomSteps, c.cfg.ZoomStepDelay

	c.spawn(func() {
		var err error
		if actuator != nil {
			err = zoom.Ramp(ctx, actuator, target, steps, delay)
		}
		c.post(zoomDone{gen: gen, err: err})
	})
}

func (c *Controller) handleEvent(ev any, now time.Time) {
	switch ev := ev.(type) {
	case recommendationDone:
		c.handleRecommendation(ev, now)
	case zoomDone:
		c.handleZoomDone(ev, now)
	case captureDone:
		c.handleCaptureDone(ev, now)
	case restoreDone:
		c.handleRestoreDone(ev, now)
	case resetRequest:
		c.handleReset(now)
	}
	c.publish(now)
}

func (c *Controller) handleRecommendation(ev recommendationDone, now time.Time) {
	defer ev.frame.Close()
	c.sampling = false

	if ev.gen != c.gen || c.phase != Idle || c.hasRegion {
		c.stats.Discarded++
		c.log.Debug("stale recommendation discarded", "generation", ev.gen, "current", c.gen)
		return
	}
	if ev.err != nil {
		c.log.Warn("recommendation failed", "error", ev.err)
		return
	}

	c.stats.LastLatency = ev.result.Latency
	if !c.lastInfer.IsZero() && now.After(c.lastInfer) {
		c.stats.InferHz = 1 / now.Sub(c.lastInfer).Seconds()
	}
	c.lastInfer = now

	region := c.filter.Smooth(ev.result.Box).Region()
	if !region.Valid() {
		c.log.Debug("degenerate recommendation dropped", "box", ev.result.Box)
		return
	}
	if !c.deps.Tracker.Init(ev.frame, region) {
		c.log.Debug("tracker init failed", "region", region)
		return
	}

	c.region = region
	c.hasRegion = true
	c.progress.reset(now)
	c.evaluator.Reset()

	c.sink.Recommended(RecommendationEvent{Result: ev.result, Region: region, Generation: c.gen, Time: now})
	c.transition(Proposed, "recommended", now)
}

func (c *Controller) handleZoomDone(ev zoomDone, now time.Time) {
	if ev.gen != c.gen || c.phase != Zooming {
		return
	}
	if ev.err != nil {
		if errors.Is(ev.err, context.Canceled) {
			return
		}
		c.log.Warn("zoom ramp failed, capturing at current zoom", "error", ev.err)
	}

	c.transition(Capturing, "zoomed", now)

	gen, ctx := c.gen, c.opCtx
	timeout := c.cfg.CaptureTimeout
	sh := c.deps.Shutter

	c.spawn(func() {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		shot, err := sh.Capture(ctx)
		c.post(captureDone{gen: gen, shot: shot, err: err})
	})
}

func (c *Controller) handleCaptureDone(ev captureDone, now time.Time) {
	if ev.gen != c.gen || c.phase != Capturing {
		return
	}

	if ev.err != nil {
		c.log.Warn("capture failed", "error", ev.err)
	} else {
		c.stats.Captures++
		c.log.Info("captured", "id", ev.shot.ID, "path", ev.shot.Path, "zoom", c.zoomTarget)
	}
	c.sink.Captured(CaptureEvent{Shot: ev.shot, Err: ev.err, Region: c.region, Zoom: c.zoomTarget, Time: now})

	gen, ctx := c.gen, c.opCtx
	actuator := c.deps.Zoom
	base, steps, delay := c.baseZoom, c.cfg.ZoomSteps, c.cfg.ZoomStepDelay
	feedback := c.cfg.FeedbackDelay

	c.spawn(func() {
		if feedback > 0 {
			t := time.NewTimer(feedback)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		if actuator != nil {
			if err := zoom.Ramp(ctx, actuator, base, steps, delay); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn("zoom restore failed", "error", err)
			}
		}
		c.post(restoreDone{gen: gen})
	})
}

func (c *Controller) handleRestoreDone(ev restoreDone, now time.Time) {
	if ev.gen != c.gen || c.phase != Capturing {
		return
	}
	c.gen++
	c.clearRegion(now)
	c.scene.Reset()
	c.transition(Idle, "captured", now)
}

func (c *Controller) handleReset(now time.Time) {
	restore := c.phase == Zooming || c.phase == Capturing

	c.gen++
	c.opCancel()
	c.opCtx, c.opCancel = context.WithCancel(c.rootCtx)
	c.clearRegion(now)
	c.scene.Reset()

	if restore && c.deps.Zoom != nil {
		ctx, actuator := c.opCtx, c.deps.Zoom
		base, steps, delay := c.baseZoom, c.cfg.ZoomSteps, c.cfg.ZoomStepDelay
		c.spawn(func() {
			if err := zoom.Ramp(ctx, actuator, base, steps, delay); err != nil && ctx.Err() == nil {
				c.log.Warn("zoom restore failed", "error", err)
			}
		})
	}

	c.transition(Idle, "reset", now)
}

func (c *Controller) transition(to Phase, reason string, now time.Time) {
	from := c.phase
	if from == to {
		return
	}
	c.phase = to
	c.log.Info("phase changed", "from", from, "to", to, "reason", reason, "generation", c.gen)

	c.publish(now)
	c.sink.PhaseChanged(PhaseEvent{From: from, To: to, Reason: reason, Snapshot: c.Snapshot()})
}

// Level returns the stability level seen by the last processed frame.
func (c *Controller) Level() motion.Level {
	return c.Snapshot().Level
}
