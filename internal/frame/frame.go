// Package frame defines the camera frame buffer passed between capture, the
// controller and the recommendation engines.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// PixelFormat describes the memory layout of Frame.Pix.
type PixelFormat int

const (
	// FormatUnknown is the zero value and is never accepted.
	FormatUnknown PixelFormat = iota
	// FormatRGBA is 4 bytes per pixel, R G B A.
	FormatRGBA
	// FormatBGR is 3 bytes per pixel, B G R (OpenCV's native order).
	FormatBGR
	// FormatGray is 1 byte per pixel.
	FormatGray
)

var (
	// ErrUnsupportedFormat is returned for frames whose pixel format cannot be processed.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	// ErrMalformed is returned when the buffer does not match the declared dimensions.
	ErrMalformed = errors.New("malformed frame")
)

// String returns the format name.
func (p PixelFormat) String() string {
	switch p {
	case FormatRGBA:
		return "rgba"
	case FormatBGR:
		return "bgr"
	case FormatGray:
		return "gray"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the stride of one pixel, or 0 for unknown formats.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case FormatRGBA:
		return 4
	case FormatBGR:
		return 3
	case FormatGray:
		return 1
	default:
		return 0
	}
}

// Frame is a single camera frame. Pix is tightly packed (stride = Width*BytesPerPixel).
// Frames that borrow a producer buffer carry a release func; Close must be called
// exactly once when the consumer is done.
type Frame struct {
	Width     int
	Height    int
	Format    PixelFormat
	Pix       []byte
	Timestamp time.Time

	release func()
	once    sync.Once
}

// New creates a frame over pix after checking it matches the dimensions.
func New(width, height int, format PixelFormat, pix []byte, ts time.Time) (*Frame, error) {
	f := &Frame{Width: width, Height: height, Format: format, Pix: pix, Timestamp: ts}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// FromImage copies img into a new RGBA frame.
func FromImage(img image.Image, ts time.Time) *Frame {
	b := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return &Frame{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    FormatRGBA,
		Pix:       rgba.Pix,
		Timestamp: ts,
	}
}

// OnRelease registers fn to run when the frame is closed.
func (f *Frame) OnRelease(fn func()) {
	f.release = fn
}

// Close releases the frame's borrowed resources. Safe to call more than once.
func (f *Frame) Close() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}

// Validate checks the format and that Pix holds exactly Width*Height pixels.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrMalformed)
	}
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %d", ErrUnsupportedFormat, f.Format)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrMalformed, f.Width, f.Height)
	}
	if want := f.Width * f.Height * bpp; len(f.Pix) != want {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrMalformed, len(f.Pix), want)
	}
	return nil
}

// Image returns the frame as an image. RGBA and gray frames share Pix; BGR frames
// are converted into a new buffer.
func (f *Frame) Image() image.Image {
	rect := image.Rect(0, 0, f.Width, f.Height)
	switch f.Format {
	case FormatGray:
		return &image.Gray{Pix: f.Pix, Stride: f.Width, Rect: rect}
	case FormatBGR:
		img := image.NewNRGBA(rect)
		for i, j := 0, 0; i+2 < len(f.Pix); i, j = i+3, j+4 {
			img.Pix[j] = f.Pix[i+2]
			img.Pix[j+1] = f.Pix[i+1]
			img.Pix[j+2] = f.Pix[i]
			img.Pix[j+3] = 0xff
		}
		return img
	default:
		return &image.NRGBA{Pix: f.Pix, Stride: f.Width * 4, Rect: rect}
	}
}

// BGR returns the frame as tightly packed BGR bytes for OpenCV consumers.
func (f *Frame) BGR() []byte {
	if f.Format == FormatBGR {
		return f.Pix
	}
	n := f.Width * f.Height
	out := make([]byte, n*3)
	switch f.Format {
	case FormatGray:
		for i := 0; i < n; i++ {
			v := f.Pix[i]
			out[i*3], out[i*3+1], out[i*3+2] = v, v, v
		}
	default:
		for i := 0; i < n; i++ {
			out[i*3] = f.Pix[i*4+2]
			out[i*3+1] = f.Pix[i*4+1]
			out[i*3+2] = f.Pix[i*4]
		}
	}
	return out
}

// Clone returns an independent copy that owns its pixels.
func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Format: f.Format, Pix: pix, Timestamp: f.Timestamp}
}

// Downscale returns a copy whose longer side is at most longSide pixels. Frames
// already small enough are cloned unchanged.
func (f *Frame) Downscale(longSide int) *Frame {
	if longSide <= 0 || (f.Width <= longSide && f.Height <= longSide) {
		return f.Clone()
	}
	w, h := longSide, 0
	if f.Height > f.Width {
		w, h = 0, longSide
	}
	dst := imaging.Resize(f.Image(), w, h, imaging.Box)
	return FromImage(dst, f.Timestamp)
}

// Crop returns a copy of the pixels inside rect.
func (f *Frame) Crop(rect image.Rectangle) *Frame {
	dst := imaging.Crop(f.Image(), rect)
	return FromImage(dst, f.Timestamp)
}
