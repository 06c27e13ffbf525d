// Package shutter takes the still picture once the controller decides to capture.
package shutter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/ayusman/autoframe/internal/frame"
)

// ErrNoFrame is returned when there is no frame to capture yet.
var ErrNoFrame = errors.New("no frame available")

// Shot describes a captured picture.
type Shot struct {
	ID     string    `json:"id"`
	Path   string    `json:"path"`
	Time   time.Time `json:"time"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
}

// Shutter takes a picture.
type Shutter interface {
	Capture(ctx context.Context) (Shot, error)
}

// FileShutter saves the latest preview frame as a JPEG file.
type FileShutter struct {
	dir     string
	source  *frame.Holder
	quality int
	now     func() time.Time
}

// NewFileShutter creates a FileShutter writing into dir. Quality ≤ 0 means 95.
func NewFileShutter(dir string, source *frame.Holder, quality int) *FileShutter {
	if quality <= 0 || quality > 100 {
		quality = 95
	}
	return &FileShutter{dir: dir, source: source, quality: quality, now: time.Now}
}

// Capture implements Shutter.
func (s *FileShutter) Capture(ctx context.Context) (Shot, error) {
	if err := ctx.Err(); err != nil {
		return Shot{}, err
	}
	f := s.source.Load()
	if f == nil {
		return Shot{}, ErrNoFrame
	}
	if err := f.Validate(); err != nil {
		return Shot{}, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Shot{}, fmt.Errorf("create capture dir: %w", err)
	}

	id := uuid.New().String()
	path := filepath.Join(s.dir, id+".jpg")
	if err := imaging.Save(f.Image(), path, imaging.JPEGQuality(s.quality)); err != nil {
		return Shot{}, fmt.Errorf("save capture: %w", err)
	}

	return Shot{ID: id, Path: path, Time: s.now(), Width: f.Width, Height: f.Height}, nil
}

// Mock is a test shutter.
type Mock struct {
	mu    sync.Mutex
	err   error
	calls int
	gate  chan struct{}
}

// NewMock creates a Mock shutter.
func NewMock() *Mock {
	return &Mock{}
}

// SetError makes Capture fail with err.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Hold makes Capture block until the returned func is called or its ctx ends.
func (m *Mock) Hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Calls returns how many times Capture was called.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Capture implements Shutter.
func (m *Mock) Capture(ctx context.Context) (Shot, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Shot{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Shot{}, m.err
	}
	return Shot{ID: fmt.Sprintf("shot-%d", n), Time: time.Now()}, nil
}
