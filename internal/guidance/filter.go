// Package guidance smooths proposed regions and decides when a tracked region has
// been centered long enough to capture.
package guidance

import "github.com/ayusman/autoframe/internal/geom"

// DefaultFilterAlpha weights the previous box; heavier history means more smoothing.
const DefaultFilterAlpha = 0.6

// BoxFilter exponentially smooths a stream of center-form boxes.
// It is not safe for concurrent use.
type BoxFilter struct {
	alpha float64
	prev  geom.Box
	init  bool
}

// NewBoxFilter creates a filter. alpha outside (0,1) uses DefaultFilterAlpha.
func NewBoxFilter(alpha float64) *BoxFilter {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultFilterAlpha
	}
	return &BoxFilter{alpha: alpha}
}

// Smooth returns prev*alpha + next*(1-alpha) per component. The first call returns
// next unchanged.
func (f *BoxFilter) Smooth(next geom.Box) geom.Box {
	if !f.init {
		f.prev = next
		f.init = true
		return next
	}
	a := f.alpha
	f.prev = geom.Box{
		CX: f.prev.CX*a + next.CX*(1-a),
		CY: f.prev.CY*a + next.CY*(1-a),
		W:  f.prev.W*a + next.W*(1-a),
		H:  f.prev.H*a + next.H*(1-a),
	}
	return f.prev
}

// Reset forgets the history.
func (f *BoxFilter) Reset() {
	f.prev = geom.Box{}
	f.init = false
}
