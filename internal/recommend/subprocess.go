package recommend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
	"github.com/ayusman/autoframe/internal/log"
)

// Subprocess runs a framing model in an external process. Each request writes a
// 4-byte big-endian length followed by a JPEG frame to the process's stdin and
// reads one JSON line {"cx","cy","w","h","score"} from its stdout. The process is
// started on first use and stopped after IdleTimeout without requests.
type Subprocess struct {
	command     []string
	idleTimeout time.Duration

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	idleTimer *time.Timer
}

// NewSubprocess creates a Subprocess engine for command.
func NewSubprocess(command []string, idleTimeout time.Duration) (*Subprocess, error) {
	if len(command) == 0 {
		return nil, errors.New("subprocess engine: empty command")
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	return &Subprocess{command: command, idleTimeout: idleTimeout}, nil
}

type subprocessResponse struct {
	CX    *float64 `json:"cx"`
	CY    *float64 `json:"cy"`
	W     *float64 `json:"w"`
	H     *float64 `json:"h"`
	Score float64  `json:"score"`
	Error string   `json:"error"`
}

// Predict implements Engine. A cancelled ctx kills the process, since the
// response stream can no longer be trusted.
func (s *Subprocess) Predict(ctx context.Context, f *frame.Frame) (Result, error) {
	start := time.Now()
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, f.Image(), imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return Result{}, fmt.Errorf("encode frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return Result{}, err
	}

	proc := s.cmd.Process
	stop := context.AfterFunc(ctx, func() { proc.Kill() })
	defer stop()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(buf.Len()))

	if _, err := s.stdin.Write(length); err != nil {
		return Result{}, s.fail(ctx, fmt.Errorf("write length: %w", err))
	}
	if _, err := s.stdin.Write(buf.Bytes()); err != nil {
		return Result{}, s.fail(ctx, fmt.Errorf("write data: %w", err))
	}

	line, err := s.stdout.ReadString('\n')
	if err != nil {
		return Result{}, s.fail(ctx, fmt.Errorf("read response: %w", err))
	}

	var resp subprocessResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return Result{}, fmt.Errorf("parse response: %w", err)
	}
	s.resetIdleTimer()

	if resp.Error != "" {
		return Result{}, fmt.Errorf("model: %s", resp.Error)
	}
	if resp.CX == nil || resp.CY == nil || resp.W == nil || resp.H == nil {
		return Result{}, ErrNoSubject
	}

	return Result{
		Box:        geom.Box{CX: *resp.CX, CY: *resp.CY, W: *resp.W, H: *resp.H},
		Confidence: resp.Score,
		Latency:    time.Since(start),
	}, nil
}

// fail tears the process down after a stream error. The next call restarts it.
func (s *Subprocess) fail(ctx context.Context, err error) error {
	s.shutdown()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// Close stops the process.
func (s *Subprocess) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *Subprocess) ensureStarted() error {
	if s.started {
		return nil
	}

	s.cmd = exec.Command(s.command[0], s.command[1:]...)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start model service: %w", err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true
	log.Info("model service started", "command", s.command[0], "pid", s.cmd.Process.Pid)
	return nil
}

func (s *Subprocess) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Killed or exited non-zero after stdin closed; nothing left to report.
		return nil
	}
	return err
}

func (s *Subprocess) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idleTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shutdown()
	})
}
