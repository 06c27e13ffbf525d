package orchestrator

import (
	"time"

	"github.com/ayusman/autoframe/internal/geom"
	"github.com/ayusman/autoframe/internal/motion"
	"github.com/ayusman/autoframe/internal/recommend"
	"github.com/ayusman/autoframe/internal/shutter"
)

// Stats are the loop counters shown in developer overlays.
type Stats struct {
	FeedHz      float64       `json:"feed_hz"`
	InferHz     float64       `json:"infer_hz"`
	LastLatency time.Duration `json:"last_latency"`
	Samples     uint64        `json:"samples"`
	Captures    uint64        `json:"captures"`
	Drops       uint64        `json:"drops"`
	RateLimited uint64        `json:"rate_limited"`
	Discarded   uint64        `json:"discarded"`
}

// Snapshot is everything a presentation layer needs to draw the guidance overlay.
type Snapshot struct {
	Phase          Phase        `json:"phase"`
	Region         *geom.Region `json:"region,omitempty"`
	Level          motion.Level `json:"level"`
	SuggestedZoom  float64      `json:"suggested_zoom"`
	CenterDistance float64      `json:"center_distance"`
	ShouldSnap     bool         `json:"should_snap"`
	SceneScore     float64      `json:"scene_score"`
	Enabled        bool         `json:"enabled"`
	Generation     uint64       `json:"generation"`
	Stats          Stats        `json:"stats"`
	Timestamp      time.Time    `json:"timestamp"`
}

// PhaseEvent reports a phase transition.
type PhaseEvent struct {
	From     Phase    `json:"from"`
	To       Phase    `json:"to"`
	Reason   string   `json:"reason"`
	Snapshot Snapshot `json:"snapshot"`
}

// RecommendationEvent reports an accepted suggestion.
type RecommendationEvent struct {
	Result     recommend.Result `json:"result"`
	Region     geom.Region      `json:"region"`
	Generation uint64           `json:"generation"`
	Time       time.Time        `json:"time"`
}

// CaptureEvent reports a finished shutter call. Err is set when the capture failed;
// the controller continues the same way in both cases.
type CaptureEvent struct {
	Shot   shutter.Shot `json:"shot"`
	Err    error        `json:"-"`
	Region geom.Region  `json:"region"`
	Zoom   float64      `json:"zoom"`
	Time   time.Time    `json:"time"`
}

// Sink receives controller notifications. Methods are called from the controller
// loop and must return quickly without calling back into the controller.
type Sink interface {
	PhaseChanged(PhaseEvent)
	FrameProcessed(Snapshot)
	Recommended(RecommendationEvent)
	Captured(CaptureEvent)
}

// NopSink ignores every notification. Embed it to implement part of Sink.
type NopSink struct{}

func (NopSink) PhaseChanged(PhaseEvent)         {}
func (NopSink) FrameProcessed(Snapshot)         {}
func (NopSink) Recommended(RecommendationEvent) {}
func (NopSink) Captured(CaptureEvent)           {}

// Sinks fans notifications out to several sinks in order.
type Sinks []Sink

func (s Sinks) PhaseChanged(e PhaseEvent) {
	for _, sink := range s {
		sink.PhaseChanged(e)
	}
}

func (s Sinks) FrameProcessed(snap Snapshot) {
	for _, sink := range s {
		sink.FrameProcessed(snap)
	}
}

func (s Sinks) Recommended(e RecommendationEvent) {
	for _, sink := range s {
		sink.Recommended(e)
	}
}

func (s Sinks) Captured(e CaptureEvent) {
	for _, sink := range s {
		sink.Captured(e)
	}
}
