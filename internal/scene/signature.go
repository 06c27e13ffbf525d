// Package scene computes compact frame signatures and compares them to follow
// global scene motion and detect abrupt framing changes.
package scene

import (
	"image"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/autoframe/internal/frame"
)

// DefaultSize is the signature grid edge.
const DefaultSize = 32

// Signature is a Size×Size luma downsample of a frame, row-major, values in [0,1].
type Signature struct {
	Size  int
	Cells []float64
}

// At returns the cell at column x, row y.
func (s Signature) At(x, y int) float64 {
	return s.Cells[y*s.Size+x]
}

// Empty reports whether the signature holds no cells.
func (s Signature) Empty() bool {
	return s.Size == 0 || len(s.Cells) == 0
}

// Compute area-downsamples f to a size×size grid and converts it to normalized luma.
func Compute(f *frame.Frame, size int) (Signature, error) {
	if err := f.Validate(); err != nil {
		return Signature{}, err
	}
	if size <= 0 {
		size = DefaultSize
	}
	return FromImage(f.Image(), size), nil
}

// FromImage computes the signature of an image.
func FromImage(img image.Image, size int) Signature {
	small := imaging.Resize(img, size, size, imaging.Box)

	cells := make([]float64, size*size)
	for i := range cells {
		p := small.Pix[i*4 : i*4+3]
		cells[i] = (0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])) / 255
	}
	return Signature{Size: size, Cells: cells}
}

// MeanAbsoluteDifference returns the mean per-cell absolute difference of a and b,
// in [0,1]. Signatures of different sizes are maximally different.
func MeanAbsoluteDifference(a, b Signature) float64 {
	if a.Size != b.Size || len(a.Cells) != len(b.Cells) || len(a.Cells) == 0 {
		return 1
	}
	return floats.Distance(a.Cells, b.Cells, 1) / float64(len(a.Cells))
}
