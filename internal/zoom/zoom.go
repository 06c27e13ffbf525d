// Package zoom drives a camera zoom actuator in small interpolated steps.
package zoom

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/autoframe/internal/geom"
)

// Actuator is a device zoom control.
type Actuator interface {
	// Ratio returns the current zoom ratio.
	Ratio() float64
	// Bounds returns the supported ratio range.
	Bounds() (min, max float64)
	// SetRatio applies one ratio step.
	SetRatio(r float64) error
}

// Ramp moves a from its current ratio to target (clamped to a's bounds) through
// steps evenly spaced ratios, waiting delay after each one. The context is checked
// before every step; once it is done no further SetRatio calls are made.
func Ramp(ctx context.Context, a Actuator, target float64, steps int, delay time.Duration) error {
	if steps < 1 {
		steps = 1
	}
	lo, hi := a.Bounds()
	target = geom.Clamp(target, lo, hi)
	start := a.Ratio()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := float64(i) / float64(steps)
		if err := a.SetRatio(start + (target-start)*t); err != nil {
			return err
		}
		if delay <= 0 {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(delay)
		} else {
			timer.Reset(delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Mock is an in-memory actuator that records every ratio it is given.
type Mock struct {
	mu    sync.Mutex
	ratio float64
	min   float64
	max   float64
	calls []float64
	err   error
	onSet func(float64)
}

// NewMock creates a Mock at ratio with the given bounds.
func NewMock(ratio, min, max float64) *Mock {
	return &Mock{ratio: ratio, min: min, max: max}
}

// Ratio implements Actuator.
func (m *Mock) Ratio() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratio
}

// Bounds implements Actuator.
func (m *Mock) Bounds() (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.min, m.max
}

// SetRatio implements Actuator.
func (m *Mock) SetRatio(r float64) error {
	m.mu.Lock()
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return err
	}
	m.ratio = r
	m.calls = append(m.calls, r)
	fn := m.onSet
	m.mu.Unlock()

	if fn != nil {
		fn(r)
	}
	return nil
}

// SetError makes SetRatio fail with err.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// OnSet registers fn to run after each successful SetRatio.
func (m *Mock) OnSet(fn func(float64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSet = fn
}

// Calls returns a copy of every ratio set so far.
func (m *Mock) Calls() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.calls))
	copy(out, m.calls)
	return out
}
