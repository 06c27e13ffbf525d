// Package testdata generates deterministic synthetic frames for tests.
package testdata

import (
	"math/rand"
	"time"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
)

// Epoch is the timestamp given to generated frames.
var Epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// Gray returns a uniform gray frame.
func Gray(width, height int, luma uint8) *frame.Frame {
	pix := make([]byte, width*height)
	for i := range pix {
		pix[i] = luma
	}
	f, _ := frame.New(width, height, frame.FormatGray, pix, Epoch)
	return f
}

// Subject returns a gray frame with a bright block covering region (normalized).
func Subject(width, height int, region geom.Region, bg, fg uint8) *frame.Frame {
	f := Gray(width, height, bg)
	rect := region.Pixels(width, height)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			f.Pix[y*width+x] = fg
		}
	}
	return f
}

// Textured returns a BGR frame of seeded blocky noise, so trackers and scene
// signatures have structure to lock on to.
func Textured(width, height int, seed int64) *frame.Frame {
	const block = 4
	rng := rand.New(rand.NewSource(seed))
	cols := (width + block - 1) / block
	rows := (height + block - 1) / block
	cells := make([]byte, cols*rows)
	rng.Read(cells)

	pix := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := cells[(y/block)*cols+x/block]
			i := (y*width + x) * 3
			pix[i], pix[i+1], pix[i+2] = v, v/2+64, 255-v
		}
	}
	f, _ := frame.New(width, height, frame.FormatBGR, pix, Epoch)
	return f
}

// Sequence returns n frames from gen, stamped interval apart starting at Epoch.
func Sequence(n int, interval time.Duration, gen func(i int) *frame.Frame) []*frame.Frame {
	frames := make([]*frame.Frame, n)
	for i := range frames {
		f := gen(i)
		f.Timestamp = Epoch.Add(time.Duration(i) * interval)
		frames[i] = f
	}
	return frames
}
