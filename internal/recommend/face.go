package recommend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	pigo "github.com/esimov/pigo/core"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
	"github.com/ayusman/autoframe/internal/log"
)

// ErrNoCascade is returned when the face engine has no cascade file configured.
var ErrNoCascade = errors.New("face cascade not configured")

// FaceParams tunes the pigo cascade scan.
type FaceParams struct {
	MinSizePct   int     // smallest face, in percent of the shorter frame side
	ShiftFactor  float64 // scan stride
	ScaleFactor  float64 // pyramid step
	IoUThreshold float64 // clustering overlap
	MinQuality   float32 // detections below this score are ignored
	// Padding grows the face box into a head-and-shoulders framing.
	Padding float64
}

// DefaultFaceParams returns the scan parameters used for portrait framing.
func DefaultFaceParams() FaceParams {
	return FaceParams{
		MinSizePct:   5,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   10,
		Padding:      2.5,
	}
}

// Face frames the highest-scoring face. When no face is found it defers to the
// fallback engine, if any.
type Face struct {
	classifier *pigo.Pigo
	params     FaceParams
	fallback   Engine
}

// NewFace creates a Face engine from an unpacked cascade.
func NewFace(classifier *pigo.Pigo, params FaceParams, fallback Engine) *Face {
	return &Face{classifier: classifier, params: params, fallback: fallback}
}

// NewFaceFromFile loads a pigo cascade from path.
func NewFaceFromFile(path string, fallback Engine) (*Face, error) {
	if path == "" {
		return nil, ErrNoCascade
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cascade: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}
	return NewFace(classifier, DefaultFaceParams(), fallback), nil
}

// Predict implements Engine.
func (e *Face) Predict(ctx context.Context, f *frame.Frame) (Result, error) {
	start := time.Now()
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	det, ok := e.detect(f)
	if !ok {
		if e.fallback != nil {
			return e.fallback.Predict(ctx, f)
		}
		return Result{}, ErrNoSubject
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	w, h := float64(f.Width), float64(f.Height)
	side := float64(det.Scale) * e.params.Padding
	box := geom.Box{
		CX: float64(det.Col) / w,
		CY: float64(det.Row) / h,
		W:  side / w,
		H:  side / h,
	}
	box.W = geom.Clamp(box.W, 0.05, 1)
	box.H = geom.Clamp(box.H, 0.05, 1)
	box.CX = geom.Clamp(box.CX, box.W/2, 1-box.W/2)
	box.CY = geom.Clamp(box.CY, box.H/2, 1-box.H/2)

	// pigo scores are unbounded; squash into [0,1).
	conf := float64(det.Q) / (float64(det.Q) + 20)

	log.Debug("face found", "row", det.Row, "col", det.Col, "scale", det.Scale, "q", det.Q)
	return Result{Box: box, Confidence: conf, Latency: time.Since(start)}, nil
}

func (e *Face) detect(f *frame.Frame) (pigo.Detection, bool) {
	pixels := pigo.RgbToGrayscale(f.Image())
	minDim := min(f.Width, f.Height)

	params := pigo.CascadeParams{
		MinSize:     max(minDim*e.params.MinSizePct/100, 20),
		MaxSize:     minDim,
		ShiftFactor: e.params.ShiftFactor,
		ScaleFactor: e.params.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   f.Height,
			Cols:   f.Width,
			Dim:    f.Width,
		},
	}

	dets := e.classifier.RunCascade(params, 0)
	dets = e.classifier.ClusterDetections(dets, e.params.IoUThreshold)

	var best pigo.Detection
	found := false
	for _, d := range dets {
		if d.Q < e.params.MinQuality {
			continue
		}
		if !found || d.Q > best.Q {
			best = d
			found = true
		}
	}
	return best, found
}

// Close implements Engine.
func (e *Face) Close() error {
	if e.fallback != nil {
		return e.fallback.Close()
	}
	return nil
}
