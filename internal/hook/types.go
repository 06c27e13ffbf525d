// Package hook runs user executables after autoframe events. A hook lives in its
// own directory with a hook.json manifest and receives one JSON request on stdin.
package hook

import (
	"encoding/json"
	"time"

	"github.com/ayusman/autoframe/internal/geom"
)

// Events a hook can subscribe to.
const (
	EventCapture        = "capture"
	EventCaptureFailed  = "capture_failed"
	EventRecommendation = "recommendation"
)

// ManifestFile is the manifest name looked up in each hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Handles reports whether the hook subscribed to event.
func (m Manifest) Handles(event string) bool {
	for _, e := range m.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Request is written to the hook's stdin.
type Request struct {
	Event    string          `json:"event"`
	ShotID   string          `json:"shot_id,omitempty"`
	ShotPath string          `json:"shot_path,omitempty"`
	Error    string          `json:"error,omitempty"`
	Region   geom.Region     `json:"region"`
	Zoom     float64         `json:"zoom,omitempty"`
	Time     time.Time       `json:"time"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}
