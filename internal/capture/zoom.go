package capture

import (
	"errors"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
)

// PropertyCamera exposes raw capture properties.
type PropertyCamera interface {
	Get(prop gocv.VideoCaptureProperties) float64
	Set(prop gocv.VideoCaptureProperties, v float64) error
}

// OpticalZoom drives the device zoom property (V4L2/UVC absolute zoom). Base is
// the property value at 1x; the ratio is the property divided by Base.
type OpticalZoom struct {
	cam PropertyCamera
	max float64

	mu   sync.Mutex
	base float64
}

// NewOpticalZoom creates an OpticalZoom. A base ≤ 0 is calibrated from the
// property value the first time the camera is open, falling back to 100 when
// the driver reports nothing.
func NewOpticalZoom(cam PropertyCamera, base, max float64) *OpticalZoom {
	if max < 1 {
		max = 1
	}
	return &OpticalZoom{cam: cam, base: base, max: max}
}

// calibrate returns the 1x property value, or 0 while the camera is closed.
func (z *OpticalZoom) calibrate() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.base > 0 {
		return z.base
	}
	if o, ok := z.cam.(interface{ IsOpen() bool }); ok && !o.IsOpen() {
		return 0
	}
	z.base = z.cam.Get(gocv.VideoCaptureZoom)
	if z.base <= 0 {
		z.base = 100
	}
	return z.base
}

// Ratio implements zoom.Actuator. It reports 1 until the camera is open.
func (z *OpticalZoom) Ratio() float64 {
	base := z.calibrate()
	if base <= 0 {
		return 1
	}
	v := z.cam.Get(gocv.VideoCaptureZoom)
	if v <= 0 {
		return 1
	}
	return v / base
}

// Bounds implements zoom.Actuator.
func (z *OpticalZoom) Bounds() (float64, float64) {
	return 1, z.max
}

// SetRatio implements zoom.Actuator.
func (z *OpticalZoom) SetRatio(r float64) error {
	base := z.calibrate()
	if base <= 0 {
		return ErrCameraNotOpen
	}
	r = geom.Clamp(r, 1, z.max)
	return z.cam.Set(gocv.VideoCaptureZoom, math.Round(base*r))
}

// DigitalZoom crops the frame center for cameras without an optical zoom.
type DigitalZoom struct {
	mu    sync.RWMutex
	ratio float64
	max   float64
}

// NewDigitalZoom creates a DigitalZoom at 1x.
func NewDigitalZoom(max float64) *DigitalZoom {
	if max < 1 {
		max = 1
	}
	return &DigitalZoom{ratio: 1, max: max}
}

// Ratio implements zoom.Actuator.
func (z *DigitalZoom) Ratio() float64 {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.ratio
}

// Bounds implements zoom.Actuator.
func (z *DigitalZoom) Bounds() (float64, float64) {
	return 1, z.max
}

// SetRatio implements zoom.Actuator.
func (z *DigitalZoom) SetRatio(r float64) error {
	if math.IsNaN(r) {
		return errors.New("digital zoom: ratio is NaN")
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	z.ratio = geom.Clamp(r, 1, z.max)
	return nil
}

// Apply crops the center 1/ratio of f and scales it back to the original size.
// At 1x f is returned as is. Otherwise f is closed and a new frame returned.
func (z *DigitalZoom) Apply(f *frame.Frame) *frame.Frame {
	r := z.Ratio()
	if r <= 1 {
		return f
	}
	defer f.Close()

	half := 0.5 / r
	rect := geom.Region{Left: 0.5 - half, Top: 0.5 - half, Right: 0.5 + half, Bottom: 0.5 + half}.
		Pixels(f.Width, f.Height)
	cropped := imaging.Crop(f.Image(), rect)
	scaled := imaging.Resize(cropped, f.Width, f.Height, imaging.Linear)
	return frame.FromImage(scaled, f.Timestamp)
}
