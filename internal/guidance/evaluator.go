package guidance

import (
	"math"
	"time"

	"github.com/ayusman/autoframe/internal/geom"
	"github.com/ayusman/autoframe/internal/motion"
)

// Config holds the lock gate constants.
type Config struct {
	// LockRadius is the largest center distance that counts as centered.
	LockRadius float64
	// Hold is how long the region must stay centered and stable before a snap.
	Hold time.Duration
}

// DefaultConfig returns the default lock gate.
func DefaultConfig() Config {
	return Config{
		LockRadius: 0.06,
		Hold:       300 * time.Millisecond,
	}
}

// State is the evaluator output for one update.
type State struct {
	Region         geom.Region  `json:"region"`
	CenterDistance float64      `json:"center_distance"`
	Level          motion.Level `json:"level"`
	ShouldSnap     bool         `json:"should_snap"`
	SuggestedZoom  float64      `json:"suggested_zoom"`
}

// Evaluator is a dwell-time gate: ShouldSnap turns true only after the region has
// been inside the lock radius at Stable for Hold without interruption.
type Evaluator struct {
	cfg   Config
	enter time.Time
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Update evaluates region at now.
func (e *Evaluator) Update(region geom.Region, level motion.Level, now time.Time) State {
	dist := region.CenterDistance()
	st := State{
		Region:         region,
		CenterDistance: dist,
		Level:          level,
		SuggestedZoom:  SuggestedZoom(region),
	}

	if dist <= e.cfg.LockRadius && level == motion.Stable {
		if e.enter.IsZero() {
			e.enter = now
		}
		st.ShouldSnap = now.Sub(e.enter) >= e.cfg.Hold
	} else {
		e.enter = time.Time{}
	}
	return st
}

// Dwell returns how long the current lock has been held at now, or 0.
func (e *Evaluator) Dwell(now time.Time) time.Duration {
	if e.enter.IsZero() {
		return 0
	}
	return now.Sub(e.enter)
}

// Reset clears the dwell timer.
func (e *Evaluator) Reset() {
	e.enter = time.Time{}
}

// SuggestedZoom is the ratio that makes region fill the frame: 1/sqrt(area), with the
// area kept away from zero.
func SuggestedZoom(region geom.Region) float64 {
	area := geom.Clamp(region.Area(), 1e-6, 1)
	return 1 / math.Sqrt(area)
}
