// Package capture reads frames from a camera through GoCV (OpenCV) and drives the
// camera's zoom.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/autoframe/internal/frame"
)

// Default camera settings
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrames is returned by MockCamera once playback has ended.
	ErrNoFrames = errors.New("no more frames")
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller owns and must close it.
	ReadFrame() (*frame.Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options configure a device camera. Zero sizes use DefaultWidth and DefaultHeight.
type Options struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// DeviceCamera manages video capture from a camera device using GoCV.
type DeviceCamera struct {
	opts    Options
	capture *gocv.VideoCapture
	mat     gocv.Mat
	mu      sync.Mutex
	running bool
	fps     int
	now     func() time.Time
}

// NewCamera creates a DeviceCamera for deviceID with the default settings.
func NewCamera(deviceID int) *DeviceCamera {
	return NewCameraWithOptions(Options{DeviceID: deviceID})
}

// NewCameraWithOptions creates a DeviceCamera. The default FPS is 5 until the
// pipeline switches it.
func NewCameraWithOptions(opts Options) *DeviceCamera {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &DeviceCamera{opts: opts, fps: fps, now: time.Now}
}

// Open opens the camera and applies the requested resolution and frame rate.
func (c *DeviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.opts.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.opts.DeviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.opts.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.opts.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.mat = gocv.NewMat()
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *DeviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.mat.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame grabs one frame and copies it out of OpenCV memory.
func (c *DeviceCamera) ReadFrame() (*frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	if ok := c.capture.Read(&c.mat); !ok {
		return nil, errors.New("failed to read frame from camera")
	}
	if c.mat.Empty() {
		return nil, errors.New("captured frame is empty")
	}

	return FromMat(c.mat, c.now())
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *DeviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *DeviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *DeviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// Get reads a capture property. It returns 0 while the camera is closed.
func (c *DeviceCamera) Get(prop gocv.VideoCaptureProperties) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return 0
	}
	return c.capture.Get(prop)
}

// Set writes a capture property.
func (c *DeviceCamera) Set(prop gocv.VideoCaptureProperties, v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return ErrCameraNotOpen
	}
	c.capture.Set(prop, v)
	return nil
}

// FromMat copies an 8-bit BGR or grayscale Mat into a frame.
func FromMat(m gocv.Mat, ts time.Time) (*frame.Frame, error) {
	var format frame.PixelFormat
	switch m.Type() {
	case gocv.MatTypeCV8UC3:
		format = frame.FormatBGR
	case gocv.MatTypeCV8UC1:
		format = frame.FormatGray
	default:
		return nil, fmt.Errorf("%w: mat type %v", frame.ErrUnsupportedFormat, m.Type())
	}
	return frame.New(m.Cols(), m.Rows(), format, m.ToBytes(), ts)
}
