package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/autoframe/internal/orchestrator"
	"github.com/ayusman/autoframe/internal/store"
)

const journalQueue = 64

// Journal records controller events in the store. Events are queued from the
// controller loop and written by Run; a full queue drops the event.
type Journal struct {
	orchestrator.NopSink

	store  *store.Store
	engine string
	log    *slog.Logger
	queue  chan func(sessionID string) error

	mu      sync.RWMutex
	session string
}

// NewJournal creates a Journal writing to s. engine is recorded with each session.
func NewJournal(s *store.Store, engine string, logger *slog.Logger) *Journal {
	return &Journal{
		store:  s,
		engine: engine,
		log:    logger,
		queue:  make(chan func(string) error, journalQueue),
	}
}

// Session returns the current session id, or "" outside Run.
func (j *Journal) Session() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.session
}

// Run opens a session, writes queued events until ctx is done, then drains the
// queue and closes the session.
func (j *Journal) Run(ctx context.Context) error {
	sess := &store.Session{ID: uuid.NewString(), Engine: j.engine}
	if err := j.store.Sessions().Create(sess); err != nil {
		return err
	}
	j.mu.Lock()
	j.session = sess.ID
	j.mu.Unlock()
	j.log.Info("session started", "session", sess.ID, "engine", j.engine)

	for {
		select {
		case write := <-j.queue:
			j.write(sess.ID, write)
		case <-ctx.Done():
		drain:
			for {
				select {
				case write := <-j.queue:
					j.write(sess.ID, write)
				default:
					break drain
				}
			}
			if err := j.store.Sessions().End(sess.ID, time.Now()); err != nil {
				j.log.Warn("session end failed", "session", sess.ID, "error", err)
			}
			j.log.Info("session ended", "session", sess.ID)
			return nil
		}
	}
}

func (j *Journal) write(sessionID string, write func(string) error) {
	if err := write(sessionID); err != nil {
		j.log.Warn("journal write failed", "error", err)
	}
}

func (j *Journal) enqueue(kind string, write func(string) error) {
	select {
	case j.queue <- write:
	default:
		j.log.Warn("journal queue full, event dropped", "event", kind)
	}
}

// Recommended implements orchestrator.Sink.
func (j *Journal) Recommended(e orchestrator.RecommendationEvent) {
	box := e.Region.Box()
	j.enqueue("recommendation", func(sessionID string) error {
		return j.store.Recommendations().Create(&store.Recommendation{
			SessionID:  sessionID,
			Generation: e.Generation,
			CX:         box.CX,
			CY:         box.CY,
			W:          box.W,
			H:          box.H,
			Confidence: e.Result.Confidence,
			LatencyMs:  e.Result.Latency.Milliseconds(),
			CreatedAt:  e.Time,
		})
	})
}

// Captured implements orchestrator.Sink. Failed captures are recorded with their
// error and no path.
func (j *Journal) Captured(e orchestrator.CaptureEvent) {
	c := &store.Capture{
		ID:        e.Shot.ID,
		Path:      e.Shot.Path,
		Width:     e.Shot.Width,
		Height:    e.Shot.Height,
		Left:      e.Region.Left,
		Top:       e.Region.Top,
		Right:     e.Region.Right,
		Bottom:    e.Region.Bottom,
		Zoom:      e.Zoom,
		CreatedAt: e.Time,
	}
	if e.Err != nil {
		c.Path = ""
		c.Error = e.Err.Error()
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	j.enqueue("capture", func(sessionID string) error {
		c.SessionID = sessionID
		return j.store.Captures().Create(c)
	})
}
