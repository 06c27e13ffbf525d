package motion

import (
	"context"
	"math"
	"sync"
	"time"
)

// Sample is one 3-axis accelerometer reading in m/s².
type Sample struct {
	X, Y, Z float64
	Time    time.Time
}

// Magnitude returns the Euclidean norm of the sample.
func (s Sample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// Source produces samples until ctx is cancelled or the device fails.
// Implementations must not close out.
type Source interface {
	Run(ctx context.Context, out chan<- Sample) error
}

// Monitor feeds samples into a Classifier and remembers when the device last
// became Stable, for readers on other goroutines.
type Monitor struct {
	classifier *Classifier
	now        func() time.Time

	mu          sync.RWMutex
	level       Level
	stableSince time.Time
	samples     uint64
}

// NewMonitor creates a Monitor around c. now defaults to time.Now and is used for
// samples without a timestamp.
func NewMonitor(c *Classifier, now func() time.Time) *Monitor {
	if now == nil {
		now = time.Now
	}
	m := &Monitor{classifier: c, now: now, level: c.Level()}
	if m.level == Stable {
		m.stableSince = now()
	}
	return m
}

// Run consumes samples until ctx is done or in is closed.
func (m *Monitor) Run(ctx context.Context, in <-chan Sample) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-in:
			if !ok {
				return nil
			}
			m.Observe(s)
		}
	}
}

// Observe classifies one sample.
func (m *Monitor) Observe(s Sample) Level {
	ts := s.Time
	if ts.IsZero() {
		ts = m.now()
	}
	level := m.classifier.Observe(s.Magnitude())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples++
	if level != m.level {
		if level == Stable {
			m.stableSince = ts
		}
		m.level = level
	}
	return level
}

// Level returns the most recent level.
func (m *Monitor) Level() Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

// StableSince returns the instant the device entered Stable and whether it is
// Stable now.
func (m *Monitor) StableSince() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stableSince, m.level == Stable
}

// Samples returns the number of samples observed.
func (m *Monitor) Samples() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.samples
}
