package scene

import (
	"sync"

	"github.com/ayusman/autoframe/internal/frame"
)

// DefaultChangeThreshold is the mean absolute difference above which two
// consecutive signatures are treated as a different scene.
const DefaultChangeThreshold = 0.18

// Detector compares each signature with the one before it.
type Detector struct {
	threshold float64
	size      int
	prev      Signature
	mu        sync.Mutex
}

// NewDetector creates a Detector. Thresholds ≤ 0 use DefaultChangeThreshold.
func NewDetector(size int, threshold float64) *Detector {
	if size <= 0 {
		size = DefaultSize
	}
	if threshold <= 0 {
		threshold = DefaultChangeThreshold
	}
	return &Detector{threshold: threshold, size: size}
}

// Observe stores sig as the new baseline and returns whether it differs from the
// previous one by more than the threshold, together with the score. The first
// signature after a reset only sets the baseline.
func (d *Detector) Observe(sig Signature) (bool, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.prev.Empty() {
		d.prev = sig
		return false, 0
	}

	score := MeanAbsoluteDifference(d.prev, sig)
	d.prev = sig
	return score > d.threshold, score
}

// Detect computes the signature of f and observes it.
func (d *Detector) Detect(f *frame.Frame) (bool, float64, error) {
	sig, err := Compute(f, d.size)
	if err != nil {
		return false, 0, err
	}
	changed, score := d.Observe(sig)
	return changed, score, nil
}

// Previous returns the current baseline signature.
func (d *Detector) Previous() (Signature, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prev, !d.prev.Empty()
}

// Reset clears the baseline.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prev = Signature{}
}

// SetThreshold sets the change threshold. Values ≤ 0 are ignored.
func (d *Detector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = threshold
}

// Size returns the signature grid edge.
func (d *Detector) Size() int {
	return d.size
}
