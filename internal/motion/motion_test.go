package motion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_ConvergesToStableAtGravity(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	// Shake it first so convergence is observable.
	for i := 0; i < 20; i++ {
		c.Observe(12)
	}
	require.Equal(t, Shaky, c.Level())

	converged := -1
	for i := 0; i < 200; i++ {
		level := c.Observe(9.81)
		if converged < 0 && level == Stable {
			converged = i
		}
		if converged >= 0 {
			require.Equal(t, Stable, level, "sample %d left Stable", i)
		}
	}
	assert.GreaterOrEqual(t, converged, 0, "never reached Stable")
	assert.Less(t, converged, 50)
}

func TestClassifier_Thresholds(t *testing.T) {
	tests := []struct {
		name string
		dev  float64
		want Level
	}{
		{"stable", 0.1, Stable},
		{"wobbly", 0.2, Wobbly},
		{"shaky", 0.5, Shaky},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Alpha = 1 // no smoothing: level follows the last deviation
			c := NewClassifier(cfg)
			assert.Equal(t, tt.want, c.Observe(cfg.Gravity+tt.dev))
			assert.InDelta(t, tt.dev, c.EMA(), 1e-9)
		})
	}
}

func TestClassifier_OnChange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alpha = 1
	c := NewClassifier(cfg)

	var got []Level
	c.OnChange(func(l Level) { got = append(got, l) })

	c.Observe(9.81)
	c.Observe(10.01)
	c.Observe(10.02)
	c.Observe(11)
	c.Observe(9.81)

	assert.Equal(t, []Level{Wobbly, Shaky, Stable}, got)
}

func TestLevel_Text(t *testing.T) {
	data, err := json.Marshal(map[string]Level{"level": Wobbly})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"wobbly"}`, string(data))

	var l Level
	require.NoError(t, l.UnmarshalText([]byte("shaky")))
	assert.Equal(t, Shaky, l)
	assert.Error(t, l.UnmarshalText([]byte("calm")))
}

func TestMonitor_StableSince(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alpha = 1
	base := time.Unix(1000, 0)
	m := NewMonitor(NewClassifier(cfg), func() time.Time { return base })

	since, ok := m.StableSince()
	require.True(t, ok)
	assert.Equal(t, base, since)

	m.Observe(Sample{Z: 11, Time: base.Add(10 * time.Millisecond)})
	_, ok = m.StableSince()
	assert.False(t, ok)
	assert.Equal(t, Shaky, m.Level())

	back := base.Add(20 * time.Millisecond)
	m.Observe(Sample{Z: 9.81, Time: back})
	m.Observe(Sample{Z: 9.81, Time: back.Add(10 * time.Millisecond)})

	since, ok = m.StableSince()
	assert.True(t, ok)
	assert.Equal(t, back, since, "stable-since is the first stable sample")
	assert.Equal(t, uint64(3), m.Samples())
}

func TestMonitor_Run(t *testing.T) {
	m := NewMonitor(NewClassifier(DefaultConfig()), nil)

	in := make(chan Sample, 3)
	in <- Sample{Z: 9.81}
	in <- Sample{Z: 9.81}
	in <- Sample{Z: 9.81}
	close(in)

	require.NoError(t, m.Run(context.Background(), in))
	assert.Equal(t, uint64(3), m.Samples())
	assert.Equal(t, Stable, m.Level())
}

func TestParseSample(t *testing.T) {
	s, err := ParseSample(" 0.1, -0.2 ,9.8\r\n")
	require.NoError(t, err)
	assert.Equal(t, Sample{X: 0.1, Y: -0.2, Z: 9.8}, s)

	_, err = ParseSample("1,2")
	assert.Error(t, err)
	_, err = ParseSample("1,x,3")
	assert.Error(t, err)
}

func TestReaderSource(t *testing.T) {
	src := &ReaderSource{R: strings.NewReader("0,0,9.81\ngarbage\n3,4,0\n")}
	out := make(chan Sample, 4)

	err := src.Run(context.Background(), out)
	require.NoError(t, err)
	require.Len(t, out, 2)

	<-out
	s := <-out
	assert.InDelta(t, 5, s.Magnitude(), 1e-12)
	assert.False(t, s.Time.IsZero())
}

func TestReaderSource_CancelUnblocksRead(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Sample, 1)
	errc := make(chan error, 1)
	go func() { errc <- (&ReaderSource{R: r}).Run(ctx, out) }()

	_, err := io.WriteString(w, "0,0,9.81\n")
	require.NoError(t, err)
	select {
	case <-out:
	case <-time.After(time.Second):
		t.Fatal("no sample")
	}

	// Nothing more is written; the read stays blocked.
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run still blocked after cancel")
	}
}

func TestReaderSource_ReadError(t *testing.T) {
	r, w := io.Pipe()
	w.CloseWithError(errors.New("link down"))

	err := (&ReaderSource{R: r}).Run(context.Background(), make(chan Sample, 1))
	assert.ErrorContains(t, err, "link down")
}

func TestStillSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Sample, 1)
	errc := make(chan error, 1)
	go func() { errc <- (&StillSource{Interval: time.Millisecond}).Run(ctx, out) }()

	select {
	case s := <-out:
		assert.InDelta(t, 9.81, s.Magnitude(), 1e-12)
	case <-time.After(time.Second):
		t.Fatal("no sample")
	}

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}
