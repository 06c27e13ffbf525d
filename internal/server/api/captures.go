// Package api provides the HTTP handlers for the autoframe capture journal.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/autoframe/internal/store"
)

const defaultListLimit = 50

// CaptureHandler handles HTTP requests for capture resources.
type CaptureHandler struct {
	store *store.Store
}

// NewCaptureHandler creates a new CaptureHandler with the given store.
func NewCaptureHandler(s *store.Store) *CaptureHandler {
	return &CaptureHandler{store: s}
}

// ServeHTTP routes /api/captures, /api/captures/{id} and /api/captures/{id}/image.
func (h *CaptureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/captures"), "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, rest, _ := strings.Cut(path, "/")
	switch {
	case rest == "image" && r.Method == http.MethodGet:
		h.image(w, r, id)
	case rest != "":
		writeError(w, http.StatusNotFound, "Not found")
	case r.Method == http.MethodGet:
		h.get(w, r, id)
	case r.Method == http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type listCapturesResponse struct {
	Captures []*store.Capture `json:"captures"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/captures?limit=N, newest first.
func (h *CaptureHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	captures, err := h.store.Captures().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list captures")
		return
	}
	if captures == nil {
		captures = []*store.Capture{}
	}
	writeJSON(w, http.StatusOK, listCapturesResponse{Captures: captures})
}

func (h *CaptureHandler) lookup(w http.ResponseWriter, id string) (*store.Capture, bool) {
	c, err := h.store.Captures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Capture not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get capture")
		return nil, false
	}
	return c, true
}

// get handles GET /api/captures/{id}.
func (h *CaptureHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	if c, ok := h.lookup(w, id); ok {
		writeJSON(w, http.StatusOK, c)
	}
}

// image handles GET /api/captures/{id}/image and serves the JPEG file.
func (h *CaptureHandler) image(w http.ResponseWriter, r *http.Request, id string) {
	c, ok := h.lookup(w, id)
	if !ok {
		return
	}
	if c.Path == "" {
		writeError(w, http.StatusNotFound, "Capture has no image")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, c.Path)
}

// delete handles DELETE /api/captures/{id}. The image file is left on disk.
func (h *CaptureHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Captures().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Capture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete capture")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
