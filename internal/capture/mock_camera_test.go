package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/autoframe/internal/frame"
)

func grayFrame(t *testing.T, w, h int, v byte) *frame.Frame {
	t.Helper()
	pix := make([]byte, w*h)
	for i := range pix {
		pix[i] = v
	}
	f, err := frame.New(w, h, frame.FormatGray, pix, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestMockCamera_Playback(t *testing.T) {
	cam := NewMockCamera([]*frame.Frame{grayFrame(t, 64, 48, 10), grayFrame(t, 64, 48, 20)}, false)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Fatalf("ReadFrame() before Open error = %v", err)
	}
	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for _, want := range []byte{10, 20} {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		if f.Pix[0] != want {
			t.Errorf("pixel = %d, want %d", f.Pix[0], want)
		}
		if f.Timestamp.IsZero() {
			t.Error("frame not stamped")
		}
		// Mutating the copy must not touch the recording.
		f.Pix[0] = 255
		f.Close()
	}

	// Third read should fail (no loop)
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames after all frames consumed, got %v", err)
	}

	cam.Reset()
	f, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() after Reset error = %v", err)
	}
	if f.Pix[0] != 10 {
		t.Errorf("recording was modified: %d", f.Pix[0])
	}
	if got := cam.Reads(); got != 3 {
		t.Errorf("Reads() = %d, want 3", got)
	}
}

func TestMockCamera_Loop(t *testing.T) {
	cam := NewMockCamera([]*frame.Frame{grayFrame(t, 8, 8, 1)}, true)
	cam.Open()
	defer cam.Close()

	// Should loop indefinitely
	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}

	cam.SetFPS(15)
	if cam.FPS() != 15 {
		t.Errorf("FPS() = %d, want 15", cam.FPS())
	}
}
