package recommend

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
)

// resizer implements the smartcrop resizer with imaging.
type resizer struct {
	resampler imaging.ResampleFilter
}

func (r *resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.resampler)
}

// SmartCrop centers a Scale×Scale box on the most salient square crop of the frame.
type SmartCrop struct {
	// Scale is the crop edge relative to the frame edge.
	Scale float64
	// Confidence is reported with every result; smartcrop has no score of its own.
	Confidence float64
}

// NewSmartCrop creates a SmartCrop engine cropping to 60% of the frame.
func NewSmartCrop() *SmartCrop {
	return &SmartCrop{Scale: 0.6, Confidence: 0.7}
}

// Predict implements Engine.
func (s *SmartCrop) Predict(ctx context.Context, f *frame.Frame) (Result, error) {
	start := time.Now()
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	img := f.Image()
	side := min(f.Width, f.Height)

	analyzer := smartcrop.NewAnalyzer(&resizer{resampler: imaging.Linear})

	type cropResult struct {
		crop image.Rectangle
		err  error
	}
	done := make(chan cropResult, 1)
	go func() {
		crop, err := analyzer.FindBestCrop(img, side, side)
		done <- cropResult{crop: crop, err: err}
	}()

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return Result{}, fmt.Errorf("find best crop: %w", res.err)
		}
		crop := geom.FromPixels(res.crop, f.Width, f.Height)
		if !crop.Valid() {
			return Result{}, ErrNoSubject
		}
		cx, cy := crop.Center()
		half := s.Scale / 2
		box := geom.Box{
			CX: geom.Clamp(cx, half, 1-half),
			CY: geom.Clamp(cy, half, 1-half),
			W:  s.Scale,
			H:  s.Scale,
		}
		return Result{Box: box, Confidence: s.Confidence, Latency: time.Since(start)}, nil
	}
}

// Close implements Engine.
func (s *SmartCrop) Close() error { return nil }
