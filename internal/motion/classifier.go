// Package motion turns accelerometer samples into a discrete stability level.
package motion

import (
	"fmt"
	"math"
	"sync"
)

// Level is the device stability classification.
type Level int

const (
	// Stable means the smoothed deviation from gravity is below the stable threshold.
	Stable Level = iota
	// Wobbly means small hand movement.
	Wobbly
	// Shaky means the device is moving.
	Shaky
)

// String returns the lower-case level name.
func (l Level) String() string {
	switch l {
	case Stable:
		return "stable"
	case Wobbly:
		return "wobbly"
	case Shaky:
		return "shaky"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "stable":
		*l = Stable
	case "wobbly":
		*l = Wobbly
	case "shaky":
		*l = Shaky
	default:
		return fmt.Errorf("unknown stability level %q", b)
	}
	return nil
}

// Config holds the classifier constants.
type Config struct {
	// Gravity is the reference magnitude at rest, in m/s².
	Gravity float64
	// Alpha is the EMA smoothing factor applied to each new deviation.
	Alpha float64
	// StableThreshold: EMA below this is Stable.
	StableThreshold float64
	// WobblyThreshold: EMA below this (and not Stable) is Wobbly.
	WobblyThreshold float64
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{
		Gravity:         9.81,
		Alpha:           0.1,
		StableThreshold: 0.15,
		WobblyThreshold: 0.35,
	}
}

// Classifier smooths |magnitude - gravity| with an EMA and thresholds it.
// It starts with a zero EMA, so it reports Stable until told otherwise.
type Classifier struct {
	cfg      Config
	ema      float64
	level    Level
	onChange func(Level)
	mu       sync.Mutex
}

// NewClassifier creates a Classifier.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg, level: Stable}
}

// OnChange registers fn to be called after the level changes. fn runs on the
// goroutine calling Observe and must not call back into the classifier.
func (c *Classifier) OnChange(fn func(Level)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Observe folds one acceleration magnitude into the EMA and returns the new level.
func (c *Classifier) Observe(magnitude float64) Level {
	c.mu.Lock()
	dev := math.Abs(magnitude - c.cfg.Gravity)
	c.ema = c.ema*(1-c.cfg.Alpha) + dev*c.cfg.Alpha

	next := c.classify(c.ema)
	changed := next != c.level
	c.level = next
	fn := c.onChange
	c.mu.Unlock()

	if changed && fn != nil {
		fn(next)
	}
	return next
}

func (c *Classifier) classify(ema float64) Level {
	switch {
	case ema < c.cfg.StableThreshold:
		return Stable
	case ema < c.cfg.WobblyThreshold:
		return Wobbly
	default:
		return Shaky
	}
}

// Level returns the current level.
func (c *Classifier) Level() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// EMA returns the current smoothed deviation.
func (c *Classifier) EMA() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ema
}

// Reset clears the EMA.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ema = 0
	c.level = Stable
}
