package store

import (
	"database/sql"
	"errors"
	"time"
)

// Capture is a shutter result. Error is set for failed captures.
type Capture struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Path      string    `json:"path"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Left      float64   `json:"left"`
	Top       float64   `json:"top"`
	Right     float64   `json:"right"`
	Bottom    float64   `json:"bottom"`
	Zoom      float64   `json:"zoom"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CaptureRepository provides access to captures.
type CaptureRepository struct {
	db *sql.DB
}

// Captures returns the capture repository for this store.
func (s *Store) Captures() *CaptureRepository {
	return &CaptureRepository{db: s.db}
}

const captureColumns = `id, session_id, path, width, height, region_left, region_top, region_right, region_bottom, zoom, error, created_at`

// Create inserts a capture.
func (r *CaptureRepository) Create(c *Capture) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO captures (`+captureColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SessionID, c.Path, c.Width, c.Height, c.Left, c.Top, c.Right, c.Bottom, c.Zoom, c.Error, c.CreatedAt,
	)
	return err
}

// GetByID retrieves a capture by its ID.
func (r *CaptureRepository) GetByID(id string) (*Capture, error) {
	c, err := scanCapture(r.db.QueryRow(`SELECT `+captureColumns+` FROM captures WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// List returns up to limit captures, newest first. limit ≤ 0 returns all.
func (r *CaptureRepository) List(limit int) ([]*Capture, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(`SELECT `+captureColumns+` FROM captures ORDER BY created_at DESC LIMIT ?`, limit)
}

// ListBySession returns the captures of a session, oldest first.
func (r *CaptureRepository) ListBySession(sessionID string) ([]*Capture, error) {
	return r.query(`SELECT `+captureColumns+` FROM captures WHERE session_id = ? ORDER BY created_at`, sessionID)
}

// Delete removes a capture by its ID.
func (r *CaptureRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM captures WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}

func (r *CaptureRepository) query(q string, args ...any) ([]*Capture, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

func scanCapture(row scanner) (*Capture, error) {
	c := &Capture{}
	err := row.Scan(&c.ID, &c.SessionID, &c.Path, &c.Width, &c.Height,
		&c.Left, &c.Top, &c.Right, &c.Bottom, &c.Zoom, &c.Error, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}
