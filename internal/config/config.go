// Package config holds the autoframe settings file. Durations are stored in
// milliseconds so the file stays hand-editable.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/autoframe/internal/guidance"
	"github.com/ayusman/autoframe/internal/motion"
	"github.com/ayusman/autoframe/internal/orchestrator"
	"github.com/ayusman/autoframe/internal/recommend"
	"github.com/ayusman/autoframe/internal/tracker"
)

// IMU sources.
const (
	IMUStill  = "still"
	IMUSerial = "serial"
	IMUStdin  = "stdin"
)

// Tracker kinds.
const (
	TrackerShift = "shift"
	TrackerMIL   = "mil"
)

// Zoom modes.
const (
	ZoomDigital = "digital"
	ZoomOptical = "optical"
	ZoomNone    = "none"
)

// Settings is the settings file.
type Settings struct {
	DataDir string `json:"data_dir"` // Default: ~/.autoframe
	Listen  string `json:"listen"`   // Default: :8080, empty disables the HTTP server
	Tray    bool   `json:"tray"`
	WebDir  string `json:"web_dir"` // Static overlay files served at /

	Camera     CameraSettings     `json:"camera"`
	IMU        IMUSettings        `json:"imu"`
	Motion     MotionSettings     `json:"motion"`
	Engine     EngineSettings     `json:"engine"`
	Tracker    TrackerSettings    `json:"tracker"`
	Controller ControllerSettings `json:"controller"`
	Zoom       ZoomSettings       `json:"zoom"`
	Shutter    ShutterSettings    `json:"shutter"`
	Hooks      HookSettings       `json:"hooks"`
	Log        LogSettings        `json:"log"`
}

// CameraSettings selects the capture device.
type CameraSettings struct {
	ID        int `json:"id"`
	IdleFPS   int `json:"idle_fps"`   // Default: 5 (while the device is shaking)
	ActiveFPS int `json:"active_fps"` // Default: 15
	Width     int `json:"width"`      // 0 keeps the driver default
	Height    int `json:"height"`
}

// IMUSettings selects where accelerometer samples come from.
type IMUSettings struct {
	Source   string `json:"source"` // still, serial or stdin
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate"` // Default: 115200
}

// MotionSettings are the stability classifier constants.
type MotionSettings struct {
	Gravity         float64 `json:"gravity"`          // Default: 9.81
	Alpha           float64 `json:"alpha"`            // Default: 0.1
	StableThreshold float64 `json:"stable_threshold"` // Default: 0.15
	WobblyThreshold float64 `json:"wobbly_threshold"` // Default: 0.35
}

// EngineSettings selects the recommendation engine.
type EngineSettings struct {
	Kind          string    `json:"kind"`
	MinLatencyMs  int       `json:"min_latency_ms"`
	MaxLatencyMs  int       `json:"max_latency_ms"`
	Seed          int64     `json:"seed"`
	CascadePath   string    `json:"cascade_path"`
	Command       []string  `json:"command"`
	IdleTimeoutMs int       `json:"idle_timeout_ms"`
	Aspects       []float64 `json:"aspects"`
}

// TrackerSettings selects the region tracker.
type TrackerSettings struct {
	Kind         string  `json:"kind"`          // shift or mil
	SearchRadius int     `json:"search_radius"` // Default: 4 signature cells
	LostCost     float64 `json:"lost_cost"`     // Default: 0.25
}

// ControllerSettings mirror orchestrator.Config.
type ControllerSettings struct {
	MaxFPS               float64 `json:"max_fps"`             // Default: 15
	DownscaleLongSide    int     `json:"downscale_long_side"` // Default: 320
	FilterAlpha          float64 `json:"filter_alpha"`        // Default: 0.6
	LockRadius           float64 `json:"lock_radius"`         // Default: 0.06
	HoldMs               int     `json:"hold_ms"`             // Default: 300
	StableWindowMs       int     `json:"stable_window_ms"`    // Default: 250
	RecommendTimeoutMs   int     `json:"recommend_timeout_ms"`
	SignatureSize        int     `json:"signature_size"`         // Default: 32
	SceneChangeThreshold float64 `json:"scene_change_threshold"` // Default: 0.18
	ProgressGraceMs      int     `json:"progress_grace_ms"`      // Default: 1500
	ProgressSlack        float64 `json:"progress_slack"`         // Default: 1.02
	ProgressWorsen       float64 `json:"progress_worsen"`        // Default: 1.6
	ZoomCap              float64 `json:"zoom_cap"`               // Default: 3.0
	ZoomSteps            int     `json:"zoom_steps"`             // Default: 15
	ZoomStepDelayMs      int     `json:"zoom_step_delay_ms"`     // Default: 16
	CaptureTimeoutMs     int     `json:"capture_timeout_ms"`
	FeedbackDelayMs      int     `json:"feedback_delay_ms"` // Default: 800
}

// ZoomSettings selects the zoom actuator.
type ZoomSettings struct {
	Mode string  `json:"mode"` // digital, optical or none
	Max  float64 `json:"max"`  // Default: 4
}

// ShutterSettings configure where shots are written.
type ShutterSettings struct {
	Dir     string `json:"dir"`     // Default: <data_dir>/captures
	Quality int    `json:"quality"` // Default: 95
}

// HookSettings configure post-capture hooks.
type HookSettings struct {
	Dir       string `json:"dir"`        // Default: <data_dir>/hooks
	TimeoutMs int    `json:"timeout_ms"` // Default: 5000
}

// LogSettings configure internal/log.
type LogSettings struct {
	Level string `json:"level"`
	File  string `json:"file"`
	JSON  bool   `json:"json"`
}

// Default returns the standard settings. Paths are resolved against DataDir by
// the caller.
func Default() Settings {
	oc := orchestrator.DefaultConfig()
	mc := motion.DefaultConfig()
	rc := recommend.DefaultConfig()

	return Settings{
		DataDir: defaultDataDir(),
		Listen:  ":8080",
		Camera:  CameraSettings{IdleFPS: 5, ActiveFPS: 15},
		IMU:     IMUSettings{Source: IMUStill, BaudRate: 115200},
		Motion: MotionSettings{
			Gravity:         mc.Gravity,
			Alpha:           mc.Alpha,
			StableThreshold: mc.StableThreshold,
			WobblyThreshold: mc.WobblyThreshold,
		},
		Engine: EngineSettings{
			Kind:          rc.Kind,
			MinLatencyMs:  millis(rc.MinLatency),
			MaxLatencyMs:  millis(rc.MaxLatency),
			Seed:          rc.Seed,
			IdleTimeoutMs: millis(rc.IdleTimeout),
		},
		Tracker: TrackerSettings{
			Kind:         TrackerShift,
			SearchRadius: tracker.DefaultSearchRadius,
			LostCost:     tracker.DefaultLostCost,
		},
		Controller: ControllerSettings{
			MaxFPS:               oc.MaxFPS,
			DownscaleLongSide:    oc.DownscaleLongSide,
			FilterAlpha:          oc.FilterAlpha,
			LockRadius:           oc.Guidance.LockRadius,
			HoldMs:               millis(oc.Guidance.Hold),
			StableWindowMs:       millis(oc.StableWindow),
			RecommendTimeoutMs:   millis(oc.RecommendTimeout),
			SignatureSize:        oc.SignatureSize,
			SceneChangeThreshold: oc.SceneChangeThreshold,
			ProgressGraceMs:      millis(oc.ProgressGrace),
			ProgressSlack:        oc.ProgressSlack,
			ProgressWorsen:       oc.ProgressWorsen,
			ZoomCap:              oc.ZoomCap,
			ZoomSteps:            oc.ZoomSteps,
			ZoomStepDelayMs:      millis(oc.ZoomStepDelay),
			CaptureTimeoutMs:     millis(oc.CaptureTimeout),
			FeedbackDelayMs:      millis(oc.FeedbackDelay),
		},
		Zoom:    ZoomSettings{Mode: ZoomDigital, Max: 4},
		Shutter: ShutterSettings{Quality: 95},
		Hooks:   HookSettings{TimeoutMs: 5000},
		Log:     LogSettings{Level: "info"},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".autoframe"
	}
	return filepath.Join(home, ".autoframe")
}

// Load reads path over the defaults, so keys missing from the file keep their
// default value. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, s.Validate()
}

// Save writes s to path as indented JSON, creating the directory if needed.
func (s Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	switch s.IMU.Source {
	case IMUStill, IMUStdin:
	case IMUSerial:
		if s.IMU.Port == "" {
			return errors.New("imu: serial source needs a port")
		}
	default:
		return fmt.Errorf("imu: unknown source %q", s.IMU.Source)
	}

	switch s.Tracker.Kind {
	case TrackerShift, TrackerMIL:
	default:
		return fmt.Errorf("tracker: unknown kind %q", s.Tracker.Kind)
	}

	switch s.Zoom.Mode {
	case ZoomDigital, ZoomOptical, ZoomNone:
	default:
		return fmt.Errorf("zoom: unknown mode %q", s.Zoom.Mode)
	}
	if s.Zoom.Mode != ZoomNone && s.Zoom.Max < 1 {
		return fmt.Errorf("zoom: max must be at least 1, got %v", s.Zoom.Max)
	}

	if s.Camera.IdleFPS <= 0 || s.Camera.ActiveFPS <= 0 {
		return errors.New("camera: fps must be positive")
	}
	if s.Motion.StableThreshold >= s.Motion.WobblyThreshold {
		return fmt.Errorf("motion: stable threshold %v must be below wobbly threshold %v",
			s.Motion.StableThreshold, s.Motion.WobblyThreshold)
	}
	if s.Motion.Alpha <= 0 || s.Motion.Alpha > 1 {
		return fmt.Errorf("motion: alpha must be in (0,1], got %v", s.Motion.Alpha)
	}
	if s.Engine.MinLatencyMs > s.Engine.MaxLatencyMs {
		return errors.New("engine: min latency above max latency")
	}

	if err := s.OrchestratorConfig().Validate(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	return nil
}

// OrchestratorConfig converts the controller settings.
func (s Settings) OrchestratorConfig() orchestrator.Config {
	c := s.Controller
	return orchestrator.Config{
		MaxFPS:            c.MaxFPS,
		DownscaleLongSide: c.DownscaleLongSide,
		FilterAlpha:       c.FilterAlpha,
		Guidance: guidance.Config{
			LockRadius: c.LockRadius,
			Hold:       ms(c.HoldMs),
		},
		StableWindow:         ms(c.StableWindowMs),
		RecommendTimeout:     ms(c.RecommendTimeoutMs),
		SignatureSize:        c.SignatureSize,
		SceneChangeThreshold: c.SceneChangeThreshold,
		ProgressGrace:        ms(c.ProgressGraceMs),
		ProgressSlack:        c.ProgressSlack,
		ProgressWorsen:       c.ProgressWorsen,
		ZoomCap:              c.ZoomCap,
		ZoomSteps:            c.ZoomSteps,
		ZoomStepDelay:        ms(c.ZoomStepDelayMs),
		CaptureTimeout:       ms(c.CaptureTimeoutMs),
		FeedbackDelay:        ms(c.FeedbackDelayMs),
	}
}

// MotionConfig converts the classifier settings.
func (s Settings) MotionConfig() motion.Config {
	return motion.Config{
		Gravity:         s.Motion.Gravity,
		Alpha:           s.Motion.Alpha,
		StableThreshold: s.Motion.StableThreshold,
		WobblyThreshold: s.Motion.WobblyThreshold,
	}
}

// RecommendConfig converts the engine settings.
func (s Settings) RecommendConfig() recommend.Config {
	e := s.Engine
	return recommend.Config{
		Kind:        e.Kind,
		MinLatency:  ms(e.MinLatencyMs),
		MaxLatency:  ms(e.MaxLatencyMs),
		Seed:        e.Seed,
		CascadePath: e.CascadePath,
		Command:     e.Command,
		IdleTimeout: ms(e.IdleTimeoutMs),
		Aspects:     e.Aspects,
	}
}

// Path joins rel onto DataDir unless rel is absolute. An empty rel yields fallback
// under DataDir.
func (s Settings) Path(rel, fallback string) string {
	if rel == "" {
		rel = fallback
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(s.DataDir, rel)
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func millis(d time.Duration) int { return int(d / time.Millisecond) }
