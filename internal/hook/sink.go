package hook

import (
	"context"
	"sync"

	"github.com/ayusman/autoframe/internal/log"
	"github.com/ayusman/autoframe/internal/orchestrator"
)

// Sink runs subscribed hooks for controller events. Hooks run on their own
// goroutines so the controller loop never waits for them.
type Sink struct {
	orchestrator.NopSink

	manager  *Manager
	executor *Executor

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSink creates a Sink over the hooks known to manager.
func NewSink(manager *Manager, executor *Executor) *Sink {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sink{manager: manager, executor: executor, ctx: ctx, cancel: cancel}
}

// Captured implements orchestrator.Sink.
func (s *Sink) Captured(e orchestrator.CaptureEvent) {
	req := Request{
		Event:    EventCapture,
		ShotID:   e.Shot.ID,
		ShotPath: e.Shot.Path,
		Region:   e.Region,
		Zoom:     e.Zoom,
		Time:     e.Time,
	}
	if e.Err != nil {
		req.Event = EventCaptureFailed
		req.Error = e.Err.Error()
	}
	s.dispatch(req)
}

// Recommended implements orchestrator.Sink.
func (s *Sink) Recommended(e orchestrator.RecommendationEvent) {
	s.dispatch(Request{Event: EventRecommendation, Region: e.Region, Time: e.Time})
}

func (s *Sink) dispatch(req Request) {
	for _, h := range s.manager.For(req.Event) {
		s.wg.Add(1)
		go func(h *Hook) {
			defer s.wg.Done()
			resp, err := s.executor.Execute(s.ctx, h, req)
			switch {
			case err != nil:
				log.Warn("hook failed", "hook", h.Manifest.Name, "event", req.Event, "error", err)
			case !resp.Success:
				log.Warn("hook reported failure", "hook", h.Manifest.Name, "event", req.Event, "error", resp.Error)
			default:
				log.Debug("hook done", "hook", h.Manifest.Name, "event", req.Event)
			}
		}(h)
	}
}

// Close cancels running hooks and waits for them.
func (s *Sink) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until every dispatched hook has finished.
func (s *Sink) Wait() {
	s.wg.Wait()
}
