package recommend

import (
	"context"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
)

// AspectSnap expands every suggestion of the wrapped engine to the closest of a
// set of print aspects. Aspects are width/height in pixels and are converted to
// normalized units using the frame's own aspect.
type AspectSnap struct {
	inner   Engine
	aspects []float64
}

// NewAspectSnap wraps inner.
func NewAspectSnap(inner Engine, aspects []float64) *AspectSnap {
	return &AspectSnap{inner: inner, aspects: aspects}
}

// Predict implements Engine.
func (a *AspectSnap) Predict(ctx context.Context, f *frame.Frame) (Result, error) {
	res, err := a.inner.Predict(ctx, f)
	if err != nil || len(a.aspects) == 0 || f.Height == 0 {
		return res, err
	}

	frameAspect := float64(f.Width) / float64(f.Height)
	normalized := make([]float64, len(a.aspects))
	for i, asp := range a.aspects {
		normalized[i] = asp / frameAspect
	}

	res.Box = geom.SnapToBestAspect(res.Region(), normalized).Box()
	return res, nil
}

// Close implements Engine.
func (a *AspectSnap) Close() error {
	return a.inner.Close()
}
