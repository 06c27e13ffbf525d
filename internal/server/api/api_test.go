package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/autoframe/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func seed(t *testing.T, s *store.Store) {
	t.Helper()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Sessions().Create(&store.Session{ID: "s1", Engine: "smartcrop", StartedAt: base}); err != nil {
		t.Fatal(err)
	}
	for i, id := range []string{"a", "b", "c"} {
		c := &store.Capture{ID: id, SessionID: "s1", Path: id + ".jpg", Zoom: 1.5, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.Captures().Create(c); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCaptureHandler_List(t *testing.T) {
	s := newTestStore(t)
	h := NewCaptureHandler(s)

	t.Run("empty list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/captures", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if body := rec.Body.String(); body != "{\"captures\":[]}\n" {
			t.Errorf("unexpected body %q", body)
		}
	})

	seed(t, s)

	t.Run("limit newest first", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/captures?limit=2", nil))

		var resp listCapturesResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Captures) != 2 || resp.Captures[0].ID != "c" || resp.Captures[1].ID != "b" {
			t.Errorf("unexpected captures: %+v", resp.Captures)
		}
	})
}

func TestCaptureHandler_Routes(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	h := NewCaptureHandler(s)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"get", http.MethodGet, "/api/captures/a", http.StatusOK},
		{"get missing", http.MethodGet, "/api/captures/zzz", http.StatusNotFound},
		{"unknown subresource", http.MethodGet, "/api/captures/a/thumb", http.StatusNotFound},
		{"post collection", http.MethodPost, "/api/captures", http.StatusMethodNotAllowed},
		{"put item", http.MethodPut, "/api/captures/a", http.StatusMethodNotAllowed},
		{"bad limit", http.MethodGet, "/api/captures?limit=-1", http.StatusBadRequest},
		{"delete", http.MethodDelete, "/api/captures/b", http.StatusNoContent},
		{"delete missing", http.MethodDelete, "/api/captures/zzz", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.want, rec.Code)
			}
		})
	}
}

func TestSessionHandler_Routes(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	h := NewSessionHandler(s)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"list", http.MethodGet, "/api/sessions", http.StatusOK},
		{"get", http.MethodGet, "/api/sessions/s1", http.StatusOK},
		{"get missing", http.MethodGet, "/api/sessions/nope", http.StatusNotFound},
		{"recommendations", http.MethodGet, "/api/sessions/s1/recommendations", http.StatusOK},
		{"captures", http.MethodGet, "/api/sessions/s1/captures", http.StatusOK},
		{"captures of missing", http.MethodGet, "/api/sessions/nope/captures", http.StatusNotFound},
		{"unknown subresource", http.MethodGet, "/api/sessions/s1/shots", http.StatusNotFound},
		{"post", http.MethodPost, "/api/sessions", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.want, rec.Code)
			}
		})
	}
}

func TestSessionHandler_EmptyRecommendations(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	h := NewSessionHandler(s)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/s1/recommendations", nil))
	if body := rec.Body.String(); body != "{\"recommendations\":[]}\n" {
		t.Errorf("unexpected body %q", body)
	}
}
