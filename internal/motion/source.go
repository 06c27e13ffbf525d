package motion

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

// ParseSample parses one "x,y,z" line. Whitespace around fields is ignored.
func ParseSample(line string) (Sample, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return Sample{}, fmt.Errorf("parse sample %q: want 3 fields, got %d", line, len(parts))
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Sample{}, fmt.Errorf("parse sample %q: %w", line, err)
		}
		v[i] = f
	}
	return Sample{X: v[0], Y: v[1], Z: v[2]}, nil
}

// ReaderSource reads newline-delimited "x,y,z" samples from R. Lines that do not
// parse are skipped. Run returns as soon as ctx is cancelled; a read still blocked
// on R is abandoned and ends with R.
type ReaderSource struct {
	R   io.Reader
	Now func() time.Time
}

// Run implements Source. It returns nil when R reaches EOF.
func (s *ReaderSource) Run(ctx context.Context, out chan<- Sample) error {
	now := s.Now
	if now == nil {
		now = time.Now
	}

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.R)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					if err != nil && ctx.Err() == nil {
						return fmt.Errorf("read samples: %w", err)
					}
				default:
				}
				return ctx.Err()
			}
			sample, err := ParseSample(line)
			if err != nil {
				continue
			}
			sample.Time = now()
			select {
			case out <- sample:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// SerialOptions describes the IMU serial link.
type SerialOptions struct {
	Path     string `json:"path"`
	BaudRate int    `json:"baud_rate"`
}

// SerialSource reads samples from an IMU streaming "x,y,z" lines over a serial port.
type SerialSource struct {
	opts SerialOptions
}

// NewSerialSource creates a SerialSource. A zero baud rate means 115200.
func NewSerialSource(opts SerialOptions) *SerialSource {
	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}
	return &SerialSource{opts: opts}
}

// Run opens the port and streams samples until ctx is cancelled.
func (s *SerialSource) Run(ctx context.Context, out chan<- Sample) error {
	mode := &serial.Mode{
		BaudRate: s.opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.opts.Path, mode)
	if err != nil {
		return fmt.Errorf("open imu port %s: %w", s.opts.Path, err)
	}

	// Closing the port unblocks the pending read.
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer func() {
		if stop() {
			port.Close()
		}
	}()

	return (&ReaderSource{R: port}).Run(ctx, out)
}

// StillSource emits gravity-only samples at a fixed rate, with optional uniform
// noise. It stands in for an IMU on machines without one.
type StillSource struct {
	Interval time.Duration
	Noise    float64
	Seed     int64
}

// Run implements Source.
func (s *StillSource) Run(ctx context.Context, out chan<- Sample) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	rng := rand.New(rand.NewSource(s.Seed))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-ticker.C:
			z := 9.81
			if s.Noise > 0 {
				z += (rng.Float64()*2 - 1) * s.Noise
			}
			select {
			case out <- Sample{Z: z, Time: t}:
			default:
			}
		}
	}
}
