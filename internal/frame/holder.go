package frame

import "sync"

// Holder keeps the most recent frame for readers outside the capture loop
// (the MJPEG stream and the shutter).
type Holder struct {
	mu     sync.RWMutex
	latest *Frame
}

// Store replaces the held frame with a private copy of f.
func (h *Holder) Store(f *Frame) {
	if f == nil {
		return
	}
	c := f.Clone()
	h.mu.Lock()
	h.latest = c
	h.mu.Unlock()
}

// Load returns a copy of the most recent frame, or nil if none was stored.
func (h *Holder) Load() *Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return nil
	}
	return h.latest.Clone()
}
