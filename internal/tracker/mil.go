package tracker

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
	"github.com/ayusman/autoframe/internal/log"
)

// MIL wraps OpenCV's MIL tracker. It follows the subject itself rather than the
// whole scene, at a much higher per-frame cost than ShiftTracker.
type MIL struct {
	mu      sync.Mutex
	tracker gocv.Tracker
}

// NewMIL creates an idle MIL tracker.
func NewMIL() *MIL {
	return &MIL{}
}

func toMat(f *frame.Frame) (gocv.Mat, error) {
	return gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.BGR())
}

// Init implements Tracker.
func (m *MIL) Init(f *frame.Frame, region geom.Region) bool {
	if !region.Valid() || f.Validate() != nil {
		return false
	}
	mat, err := toMat(f)
	if err != nil {
		log.Debug("mil init: mat conversion failed", "error", err)
		return false
	}
	defer mat.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()
	t := gocv.NewTrackerMIL()
	if !t.Init(mat, region.Pixels(f.Width, f.Height)) {
		t.Close()
		return false
	}
	m.tracker = t
	return true
}

// Update implements Tracker.
func (m *MIL) Update(f *frame.Frame) (geom.Region, bool) {
	if f.Validate() != nil {
		return geom.Region{}, false
	}
	mat, err := toMat(f)
	if err != nil {
		return geom.Region{}, false
	}
	defer mat.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tracker == nil {
		return geom.Region{}, false
	}
	rect, ok := m.tracker.Update(mat)
	if !ok {
		return geom.Region{}, false
	}
	region := geom.FromPixels(rect, f.Width, f.Height)
	return region, region.Valid()
}

// Reset implements Tracker.
func (m *MIL) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *MIL) closeLocked() {
	if m.tracker != nil {
		m.tracker.Close()
		m.tracker = nil
	}
}
