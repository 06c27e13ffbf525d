// Package recommend provides framing-suggestion engines. An engine looks at one
// frame and proposes the region a photographer would frame.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
)

// Result is one framing suggestion.
type Result struct {
	Box        geom.Box      `json:"box"`
	Confidence float64       `json:"confidence"`
	Latency    time.Duration `json:"latency"`
}

// Region returns the suggestion as a clamped region.
func (r Result) Region() geom.Region {
	return r.Box.Region()
}

// Engine proposes a framing for a frame. Predict may block for tens to hundreds of
// milliseconds and must honor ctx.
type Engine interface {
	Predict(ctx context.Context, f *frame.Frame) (Result, error)
	Close() error
}

// ErrNoSubject is returned when an engine finds nothing worth framing.
var ErrNoSubject = errors.New("no subject found")

// Engine kinds accepted by New.
const (
	KindHeuristic  = "heuristic"
	KindRandom     = "random"
	KindSmartCrop  = "smartcrop"
	KindFace       = "face"
	KindSubprocess = "subprocess"
)

// Config selects and configures an engine.
type Config struct {
	Kind string `json:"kind"`

	// MinLatency and MaxLatency bound the simulated delay of the mock engines.
	MinLatency time.Duration `json:"-"`
	MaxLatency time.Duration `json:"-"`
	Seed       int64         `json:"seed"`

	// CascadePath is the pigo face cascade for KindFace.
	CascadePath string `json:"cascade_path"`

	// Command runs the model service for KindSubprocess.
	Command     []string      `json:"command"`
	IdleTimeout time.Duration `json:"-"`

	// Aspects, when set, snaps every suggestion to the closest of these width/height ratios.
	Aspects []float64 `json:"aspects"`
}

// DefaultConfig returns the heuristic engine with its usual latency.
func DefaultConfig() Config {
	return Config{
		Kind:        KindHeuristic,
		MinLatency:  50 * time.Millisecond,
		MaxLatency:  90 * time.Millisecond,
		Seed:        42,
		IdleTimeout: 30 * time.Second,
	}
}

// New builds the engine described by cfg.
func New(cfg Config) (Engine, error) {
	var (
		e   Engine
		err error
	)
	switch cfg.Kind {
	case KindHeuristic, "":
		e = NewHeuristic(cfg.MinLatency, cfg.MaxLatency, cfg.Seed)
	case KindRandom:
		e = NewRandom(cfg.MinLatency, cfg.MaxLatency, cfg.Seed)
	case KindSmartCrop:
		e = NewSmartCrop()
	case KindFace:
		e, err = NewFaceFromFile(cfg.CascadePath, NewSmartCrop())
	case KindSubprocess:
		e, err = NewSubprocess(cfg.Command, cfg.IdleTimeout)
	default:
		return nil, fmt.Errorf("unknown engine kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	if len(cfg.Aspects) > 0 {
		e = NewAspectSnap(e, cfg.Aspects)
	}
	return e, nil
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// jitter picks a delay in [lo, hi].
func jitter(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rng.Int63n(int64(hi-lo)+1))
}
