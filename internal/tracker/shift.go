package tracker

import (
	"sync"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
	"github.com/ayusman/autoframe/internal/scene"
)

// Shift tracker defaults.
const (
	DefaultSearchRadius = 4
	DefaultLostCost     = 0.25
)

// ShiftTracker moves the region with the global scene translation estimated from
// consecutive frame signatures. It cannot follow a subject moving against the
// background, but it is cheap enough to run on every frame.
type ShiftTracker struct {
	size     int
	radius   int
	lostCost float64

	mu     sync.Mutex
	prev   scene.Signature
	region geom.Region
	active bool
}

// NewShiftTracker creates a ShiftTracker. Zero arguments use the defaults.
func NewShiftTracker(size, radius int, lostCost float64) *ShiftTracker {
	if size <= 0 {
		size = scene.DefaultSize
	}
	if radius <= 0 {
		radius = DefaultSearchRadius
	}
	if lostCost <= 0 {
		lostCost = DefaultLostCost
	}
	return &ShiftTracker{size: size, radius: radius, lostCost: lostCost}
}

// Init implements Tracker.
func (t *ShiftTracker) Init(f *frame.Frame, region geom.Region) bool {
	if !region.Valid() {
		return false
	}
	sig, err := scene.Compute(f, t.size)
	if err != nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.prev = sig
	t.region = region
	t.active = true
	return true
}

// Update implements Tracker.
func (t *ShiftTracker) Update(f *frame.Frame) (geom.Region, bool) {
	sig, err := scene.Compute(f, t.size)

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active || err != nil {
		return geom.Region{}, false
	}

	dx, dy, cost := scene.EstimateShift(t.prev, sig, t.radius)
	if cost > t.lostCost {
		t.active = false
		return geom.Region{}, false
	}

	n := float64(t.size)
	t.region = t.region.Translate(-float64(dx)/n, -float64(dy)/n)
	t.prev = sig
	if !t.region.Valid() {
		t.active = false
		return geom.Region{}, false
	}
	return t.region, true
}

// Reset implements Tracker.
func (t *ShiftTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prev = scene.Signature{}
	t.region = geom.Region{}
	t.active = false
}
