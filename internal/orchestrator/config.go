// Package orchestrator owns the guided-capture state machine. A single loop
// goroutine fuses camera frames, the device stability level and asynchronous
// framing suggestions into phase transitions, and drives the zoom and shutter.
package orchestrator

import (
	"fmt"
	"time"

	"github.com/ayusman/autoframe/internal/guidance"
)

// Phase is the capture phase.
type Phase int

const (
	// Idle: no region; waiting for a stable window to ask for a suggestion.
	Idle Phase = iota
	// Proposed: a suggestion was accepted and the tracker initialized on it.
	Proposed
	// Aligning: the tracker is following the region while the user centers it.
	Aligning
	// Zooming: the region is locked and the zoom is ramping to frame it.
	Zooming
	// Capturing: the shutter was triggered; the feedback window runs afterwards.
	Capturing
)

// String returns the lower-case phase name.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Proposed:
		return "proposed"
	case Aligning:
		return "aligning"
	case Zooming:
		return "zooming"
	case Capturing:
		return "capturing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Config holds the controller tunables.
type Config struct {
	// MaxFPS caps the frames admitted into the loop. Zero disables the cap.
	MaxFPS float64
	// DownscaleLongSide is the long side of frames sent to the engine.
	DownscaleLongSide int
	// FilterAlpha weights the previous suggestion in the box filter.
	FilterAlpha float64
	// Guidance is the lock radius and hold duration.
	Guidance guidance.Config

	// StableWindow is how long the device must be Stable before sampling.
	StableWindow time.Duration
	// RecommendTimeout bounds one engine call. Zero means no bound.
	RecommendTimeout time.Duration

	// SignatureSize is the scene signature grid edge.
	SignatureSize int
	// SceneChangeThreshold forces reacquisition when consecutive signatures differ more.
	SceneChangeThreshold float64

	// ProgressGrace is how long the centering error may go without improving.
	ProgressGrace time.Duration
	// ProgressSlack is the tolerance under which an error still counts as progress.
	ProgressSlack float64
	// ProgressWorsen is the multiple of the best error that, after the grace
	// period, triggers reacquisition.
	ProgressWorsen float64

	// ZoomCap limits the suggested zoom ratio.
	ZoomCap float64
	// ZoomSteps and ZoomStepDelay shape the zoom ramp.
	ZoomSteps     int
	ZoomStepDelay time.Duration

	// CaptureTimeout bounds one shutter call. Zero means no bound.
	CaptureTimeout time.Duration
	// FeedbackDelay is the pause after a capture before zooming back out.
	FeedbackDelay time.Duration
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		MaxFPS:               15,
		DownscaleLongSide:    320,
		FilterAlpha:          guidance.DefaultFilterAlpha,
		Guidance:             guidance.DefaultConfig(),
		StableWindow:         250 * time.Millisecond,
		RecommendTimeout:     2 * time.Second,
		SignatureSize:        32,
		SceneChangeThreshold: 0.18,
		ProgressGrace:        1500 * time.Millisecond,
		ProgressSlack:        1.02,
		ProgressWorsen:       1.6,
		ZoomCap:              3.0,
		ZoomSteps:            15,
		ZoomStepDelay:        16 * time.Millisecond,
		CaptureTimeout:       5 * time.Second,
		FeedbackDelay:        800 * time.Millisecond,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.MaxFPS < 0:
		return fmt.Errorf("max fps must not be negative, got %v", c.MaxFPS)
	case c.FilterAlpha <= 0 || c.FilterAlpha >= 1:
		return fmt.Errorf("filter alpha must be in (0,1), got %v", c.FilterAlpha)
	case c.Guidance.LockRadius <= 0:
		return fmt.Errorf("lock radius must be positive, got %v", c.Guidance.LockRadius)
	case c.SignatureSize < 4:
		return fmt.Errorf("signature size must be at least 4, got %d", c.SignatureSize)
	case c.SceneChangeThreshold <= 0 || c.SceneChangeThreshold > 1:
		return fmt.Errorf("scene change threshold must be in (0,1], got %v", c.SceneChangeThreshold)
	case c.ProgressSlack < 1:
		return fmt.Errorf("progress slack must be at least 1, got %v", c.ProgressSlack)
	case c.ProgressWorsen <= 1:
		return fmt.Errorf("progress worsen multiple must be above 1, got %v", c.ProgressWorsen)
	case c.ZoomCap < 1:
		return fmt.Errorf("zoom cap must be at least 1, got %v", c.ZoomCap)
	case c.ZoomSteps < 1:
		return fmt.Errorf("zoom steps must be at least 1, got %d", c.ZoomSteps)
	}
	return nil
}
