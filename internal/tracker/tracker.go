// Package tracker follows a proposed region between recommendation calls.
package tracker

import (
	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
)

// Tracker follows one region across frames. A false result from Init or Update
// means the region can no longer be trusted.
type Tracker interface {
	// Init starts tracking region on f.
	Init(f *frame.Frame, region geom.Region) bool
	// Update returns the region's position in f.
	Update(f *frame.Frame) (geom.Region, bool)
	// Reset drops the tracked region.
	Reset()
}
