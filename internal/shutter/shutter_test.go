package shutter

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/autoframe/internal/frame"
)

func TestFileShutter_Capture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	holder := &frame.Holder{}
	s := NewFileShutter(dir, holder, 0)

	_, err := s.Capture(context.Background())
	require.ErrorIs(t, err, ErrNoFrame)

	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for i := range img.Pix {
		img.Pix[i] = 0xc0
	}
	img.Set(0, 0, color.Black)
	holder.Store(frame.FromImage(img, time.Now()))

	shot, err := s.Capture(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, shot.ID)
	assert.Equal(t, filepath.Join(dir, shot.ID+".jpg"), shot.Path)
	assert.Equal(t, 40, shot.Width)
	assert.Equal(t, 30, shot.Height)

	_, err = os.Stat(shot.Path)
	require.NoError(t, err)

	saved, err := imaging.Open(shot.Path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), saved.Bounds())

	other, err := s.Capture(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, shot.ID, other.ID)
}

func TestFileShutter_CancelledContext(t *testing.T) {
	s := NewFileShutter(t.TempDir(), &frame.Holder{}, 90)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMock(t *testing.T) {
	m := NewMock()

	shot, err := m.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "shot-1", shot.ID)

	m.SetError(errors.New("sensor busy"))
	_, err = m.Capture(context.Background())
	assert.EqualError(t, err, "sensor busy")
	assert.Equal(t, 2, m.Calls())

	release := m.Hold()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Capture(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	release()
}
