package recommend

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
)

// Heuristic proposes rule-of-thirds or near-center boxes after a simulated delay.
// It behaves enough like a real model to exercise the controller.
type Heuristic struct {
	minLatency time.Duration
	maxLatency time.Duration
	mu         sync.Mutex
	rng        *rand.Rand
}

// NewHeuristic creates a Heuristic engine.
func NewHeuristic(minLatency, maxLatency time.Duration, seed int64) *Heuristic {
	return &Heuristic{minLatency: minLatency, maxLatency: maxLatency, rng: rand.New(rand.NewSource(seed))}
}

// Predict implements Engine.
func (h *Heuristic) Predict(ctx context.Context, f *frame.Frame) (Result, error) {
	start := time.Now()

	h.mu.Lock()
	delay := jitter(h.rng, h.minLatency, h.maxLatency)
	axis := func() float64 {
		if h.rng.Intn(2) == 0 {
			return []float64{1.0 / 3.0, 2.0 / 3.0}[h.rng.Intn(2)]
		}
		return 0.5 + (h.rng.Float64()-0.5)*0.12
	}
	cx, cy := axis(), axis()
	w := 0.55 + h.rng.Float64()*0.25
	ht := 0.55 + h.rng.Float64()*0.25
	h.mu.Unlock()

	if err := sleep(ctx, delay); err != nil {
		return Result{}, err
	}

	return Result{
		Box: geom.Box{
			CX: geom.Clamp(cx, w/2, 1-w/2),
			CY: geom.Clamp(cy, ht/2, 1-ht/2),
			W:  w,
			H:  ht,
		},
		Confidence: 0.8,
		Latency:    max(time.Millisecond, time.Since(start)),
	}, nil
}

// Close implements Engine.
func (h *Heuristic) Close() error { return nil }

// Random proposes uniformly placed boxes after a simulated delay.
type Random struct {
	minLatency time.Duration
	maxLatency time.Duration
	mu         sync.Mutex
	rng        *rand.Rand
}

// NewRandom creates a Random engine.
func NewRandom(minLatency, maxLatency time.Duration, seed int64) *Random {
	return &Random{minLatency: minLatency, maxLatency: maxLatency, rng: rand.New(rand.NewSource(seed))}
}

// Predict implements Engine.
func (r *Random) Predict(ctx context.Context, f *frame.Frame) (Result, error) {
	start := time.Now()

	r.mu.Lock()
	delay := jitter(r.rng, r.minLatency, r.maxLatency)
	w := 0.45 + r.rng.Float64()*0.35
	h := 0.45 + r.rng.Float64()*0.35
	box := geom.Box{
		CX: w/2 + r.rng.Float64()*(1-w),
		CY: h/2 + r.rng.Float64()*(1-h),
		W:  w,
		H:  h,
	}
	score := r.rng.Float64()
	r.mu.Unlock()

	if err := sleep(ctx, delay); err != nil {
		return Result{}, err
	}
	return Result{Box: box, Confidence: score, Latency: time.Since(start)}, nil
}

// Close implements Engine.
func (r *Random) Close() error { return nil }

// Mock is a test engine returning a preset result. Predict blocks while a gate
// channel is set and open, which lets tests hold a request in flight.
type Mock struct {
	mu     sync.Mutex
	result Result
	err    error
	gate   chan struct{}
	calls  int
	closed bool
}

// NewMock creates a Mock returning result.
func NewMock(result Result) *Mock {
	return &Mock{result: result}
}

// SetResult sets the result returned by Predict.
func (m *Mock) SetResult(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = r
}

// SetError sets the error returned by Predict.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Hold makes subsequent Predict calls block until the returned func is called.
func (m *Mock) Hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gate == gate {
				m.gate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many times Predict was called.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Predict implements Engine.
func (m *Mock) Predict(ctx context.Context, f *frame.Frame) (Result, error) {
	m.mu.Lock()
	m.calls++
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	return m.result, nil
}

// Close implements Engine.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
