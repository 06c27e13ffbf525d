package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/autoframe/internal/store"
)

// SessionHandler handles HTTP requests for sessions and their journal entries.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes /api/sessions, /api/sessions/{id},
// /api/sessions/{id}/recommendations and /api/sessions/{id}/captures.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")
	if path == "" {
		h.list(w, r)
		return
	}

	id, rest, _ := strings.Cut(path, "/")
	switch rest {
	case "":
		h.get(w, r, id)
	case "recommendations":
		h.recommendations(w, r, id)
	case "captures":
		h.captures(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type listRecommendationsResponse struct {
	Recommendations []*store.Recommendation `json:"recommendations"`
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// exists writes a 404 and returns false when the session is unknown.
func (h *SessionHandler) exists(w http.ResponseWriter, id string) (*store.Session, bool) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	if sess, ok := h.exists(w, id); ok {
		writeJSON(w, http.StatusOK, sess)
	}
}

func (h *SessionHandler) recommendations(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.exists(w, id); !ok {
		return
	}
	recs, err := h.store.Recommendations().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recommendations")
		return
	}
	if recs == nil {
		recs = []*store.Recommendation{}
	}
	writeJSON(w, http.StatusOK, listRecommendationsResponse{Recommendations: recs})
}

func (h *SessionHandler) captures(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.exists(w, id); !ok {
		return
	}
	captures, err := h.store.Captures().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list captures")
		return
	}
	if captures == nil {
		captures = []*store.Capture{}
	}
	writeJSON(w, http.StatusOK, listCapturesResponse{Captures: captures})
}
