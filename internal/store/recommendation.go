package store

import (
	"database/sql"
	"time"
)

// Recommendation is an accepted framing suggestion.
type Recommendation struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Generation uint64    `json:"generation"`
	CX         float64   `json:"cx"`
	CY         float64   `json:"cy"`
	W          float64   `json:"w"`
	H          float64   `json:"h"`
	Confidence float64   `json:"confidence"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecommendationRepository provides access to recommendations.
type RecommendationRepository struct {
	db *sql.DB
}

// Recommendations returns the recommendation repository for this store.
func (s *Store) Recommendations() *RecommendationRepository {
	return &RecommendationRepository{db: s.db}
}

// Create inserts rec and sets its ID.
func (r *RecommendationRepository) Create(rec *Recommendation) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	result, err := r.db.Exec(
		`INSERT INTO recommendations (session_id, generation, cx, cy, w, h, confidence, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, int64(rec.Generation), rec.CX, rec.CY, rec.W, rec.H, rec.Confidence, rec.LatencyMs, rec.CreatedAt,
	)
	if err != nil {
		return err
	}
	rec.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns the recommendations of a session in insertion order.
func (r *RecommendationRepository) ListBySession(sessionID string) ([]*Recommendation, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, generation, cx, cy, w, h, confidence, latency_ms, created_at
		 FROM recommendations WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recommendation
	for rows.Next() {
		rec := &Recommendation{}
		var gen int64
		if err := rows.Scan(&rec.ID, &rec.SessionID, &gen, &rec.CX, &rec.CY, &rec.W, &rec.H,
			&rec.Confidence, &rec.LatencyMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Generation = uint64(gen)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
