package capture

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/autoframe/internal/frame"
)

type fakeProps struct {
	values map[gocv.VideoCaptureProperties]float64
}

func (p *fakeProps) Get(prop gocv.VideoCaptureProperties) float64 { return p.values[prop] }

func (p *fakeProps) Set(prop gocv.VideoCaptureProperties, v float64) error {
	p.values[prop] = v
	return nil
}

func TestOpticalZoom(t *testing.T) {
	props := &fakeProps{values: map[gocv.VideoCaptureProperties]float64{gocv.VideoCaptureZoom: 100}}
	z := NewOpticalZoom(props, 0, 4)

	assert.Equal(t, 1.0, z.Ratio())
	require.NoError(t, z.SetRatio(2.5))
	assert.Equal(t, 250.0, props.values[gocv.VideoCaptureZoom])
	assert.Equal(t, 2.5, z.Ratio())

	require.NoError(t, z.SetRatio(9))
	assert.Equal(t, 400.0, props.values[gocv.VideoCaptureZoom])

	lo, hi := z.Bounds()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 4.0, hi)
}

func TestOpticalZoom_NoDriverValue(t *testing.T) {
	props := &fakeProps{values: map[gocv.VideoCaptureProperties]float64{}}
	z := NewOpticalZoom(props, 0, 3)
	assert.Equal(t, 1.0, z.Ratio())
	require.NoError(t, z.SetRatio(2))
	assert.Equal(t, 200.0, props.values[gocv.VideoCaptureZoom])
}

// closedProps reports no property values until it is opened.
type closedProps struct {
	fakeProps
	open bool
}

func (p *closedProps) IsOpen() bool { return p.open }

func (p *closedProps) Get(prop gocv.VideoCaptureProperties) float64 {
	if !p.open {
		return 0
	}
	return p.fakeProps.Get(prop)
}

func TestOpticalZoom_CalibratesOnceOpen(t *testing.T) {
	props := &closedProps{fakeProps: fakeProps{values: map[gocv.VideoCaptureProperties]float64{gocv.VideoCaptureZoom: 2}}}
	z := NewOpticalZoom(props, 0, 5)

	assert.Equal(t, 1.0, z.Ratio())
	assert.ErrorIs(t, z.SetRatio(2), ErrCameraNotOpen)
	assert.Equal(t, 2.0, props.values[gocv.VideoCaptureZoom])

	props.open = true
	assert.Equal(t, 1.0, z.Ratio())
	require.NoError(t, z.SetRatio(3))
	assert.Equal(t, 6.0, props.values[gocv.VideoCaptureZoom])
	assert.Equal(t, 3.0, z.Ratio())

	// The base stays at the value seen when first opened.
	require.NoError(t, z.SetRatio(1))
	assert.Equal(t, 2.0, props.values[gocv.VideoCaptureZoom])
}

func TestOpticalZoom_ExplicitBase(t *testing.T) {
	props := &closedProps{fakeProps: fakeProps{values: map[gocv.VideoCaptureProperties]float64{}}, open: true}
	z := NewOpticalZoom(props, 10, 4)
	require.NoError(t, z.SetRatio(4))
	assert.Equal(t, 40.0, props.values[gocv.VideoCaptureZoom])
}

func TestDigitalZoom_Apply(t *testing.T) {
	z := NewDigitalZoom(4)

	// Dark border with a bright center quarter.
	w, h := 40, 40
	pix := make([]byte, w*h)
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			pix[y*w+x] = 200
		}
	}
	src, err := frame.New(w, h, frame.FormatGray, pix, time.Unix(5, 0))
	require.NoError(t, err)

	same := z.Apply(src)
	assert.Same(t, src, same)

	require.NoError(t, z.SetRatio(2))
	var released bool
	src.OnRelease(func() { released = true })

	out := z.Apply(src)
	defer out.Close()
	assert.True(t, released)
	assert.Equal(t, w, out.Width)
	assert.Equal(t, h, out.Height)
	assert.Equal(t, time.Unix(5, 0), out.Timestamp)

	// At 2x the bright center fills the frame.
	img := out.Image()
	r, _, _, _ := img.At(2, 2).RGBA()
	assert.InDelta(t, 200, float64(r>>8), 2)
}

func TestDigitalZoom_Clamp(t *testing.T) {
	z := NewDigitalZoom(3)
	require.NoError(t, z.SetRatio(10))
	assert.Equal(t, 3.0, z.Ratio())
	require.NoError(t, z.SetRatio(0.2))
	assert.Equal(t, 1.0, z.Ratio())
	assert.Error(t, z.SetRatio(math.NaN()))
}
