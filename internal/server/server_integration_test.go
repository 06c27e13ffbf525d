package server

import (
	"bufio"
	"context"
	"encoding/json"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/geom"
	"github.com/ayusman/autoframe/internal/orchestrator"
	"github.com/ayusman/autoframe/internal/shutter"
	"github.com/ayusman/autoframe/internal/store"
)

func TestAPI_JournalWorkflow(t *testing.T) {
	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Sessions().Create(&store.Session{ID: "sess", Engine: "heuristic", StartedAt: started}); err != nil {
		t.Fatal(err)
	}
	if err := s.Recommendations().Create(&store.Recommendation{SessionID: "sess", CX: 0.5, CY: 0.5, W: 0.4, H: 0.4, Confidence: 0.9}); err != nil {
		t.Fatal(err)
	}
	shotPath := filepath.Join(tmpDir, "shot.jpg")
	if err := os.WriteFile(shotPath, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Captures().Create(&store.Capture{ID: "cap", SessionID: "sess", Path: shotPath, Width: 64, Height: 48, Zoom: 2, CreatedAt: started.Add(time.Second)}); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(New(Config{Store: s}))
	defer ts.Close()
	client := ts.Client()

	getJSON := func(path string, want int, into any) {
		t.Helper()
		resp, err := client.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, want)
		}
		if into != nil {
			if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
				t.Fatalf("GET %s decode: %v", path, err)
			}
		}
	}

	var sessions struct {
		Sessions []store.Session `json:"sessions"`
	}
	getJSON("/api/sessions", http.StatusOK, &sessions)
	if len(sessions.Sessions) != 1 || sessions.Sessions[0].Engine != "heuristic" {
		t.Errorf("unexpected sessions: %+v", sessions.Sessions)
	}

	var recs struct {
		Recommendations []store.Recommendation `json:"recommendations"`
	}
	getJSON("/api/sessions/sess/recommendations", http.StatusOK, &recs)
	if len(recs.Recommendations) != 1 || recs.Recommendations[0].Confidence != 0.9 {
		t.Errorf("unexpected recommendations: %+v", recs.Recommendations)
	}
	getJSON("/api/sessions/missing/recommendations", http.StatusNotFound, nil)

	var captures struct {
		Captures []store.Capture `json:"captures"`
	}
	getJSON("/api/captures", http.StatusOK, &captures)
	if len(captures.Captures) != 1 || captures.Captures[0].Zoom != 2 {
		t.Errorf("unexpected captures: %+v", captures.Captures)
	}
	getJSON("/api/sessions/sess/captures", http.StatusOK, &captures)
	if len(captures.Captures) != 1 {
		t.Errorf("expected 1 session capture, got %d", len(captures.Captures))
	}
	getJSON("/api/captures?limit=zero", http.StatusBadRequest, nil)

	var one store.Capture
	getJSON("/api/captures/cap", http.StatusOK, &one)
	if one.Path != shotPath {
		t.Errorf("capture path = %s, want %s", one.Path, shotPath)
	}

	resp, err := client.Get(ts.URL + "/api/captures/cap/image")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "jpeg-bytes" {
		t.Errorf("image: status %d body %q", resp.StatusCode, body)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/captures/cap", nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	getJSON("/api/captures/cap", http.StatusNotFound, nil)

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/captures/cap", nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestStream_ServesJPEGParts(t *testing.T) {
	var preview frame.Holder
	preview.Store(frame.FromImage(image.NewRGBA(image.Rect(0, 0, 32, 24)), time.Now()))

	ts := httptest.NewServer(New(Config{Preview: &preview, StreamFPS: 50}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" {
		t.Fatalf("unexpected content type %q: %v", resp.Header.Get("Content-Type"), err)
	}

	mr := multipart.NewReader(bufio.NewReader(resp.Body), params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("NextPart() error = %v", err)
	}
	if ct := part.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("part content type = %s, want image/jpeg", ct)
	}
	data, err := io.ReadAll(part)
	if err != nil {
		t.Fatalf("read part: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Errorf("part is not a JPEG (%d bytes)", len(data))
	}
}

func TestStream_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(&frame.Holder{}, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func dialHub(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/api/guidance", nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("bad message %s: %v", data, err)
	}
	return m
}

func waitClients(t *testing.T, hub *GuidanceHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGuidanceHub_Broadcast(t *testing.T) {
	hub := NewGuidanceHub()
	defer hub.Close()

	hub.FrameProcessed(orchestrator.Snapshot{Phase: orchestrator.Idle, Generation: 1})

	ts := httptest.NewServer(New(Config{Guidance: hub}))
	defer ts.Close()

	conn := dialHub(t, ts.URL)
	waitClients(t, hub, 1)

	first := readMessage(t, conn)
	if string(first["type"]) != `"snapshot"` {
		t.Errorf("first message type = %s, want snapshot", first["type"])
	}

	hub.PhaseChanged(orchestrator.PhaseEvent{From: orchestrator.Idle, To: orchestrator.Proposed, Reason: "recommended"})
	m := readMessage(t, conn)
	if string(m["type"]) != `"phase"` {
		t.Fatalf("message type = %s, want phase", m["type"])
	}
	var pe struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(m["data"], &pe); err != nil {
		t.Fatal(err)
	}
	if pe.From != "idle" || pe.To != "proposed" || pe.Reason != "recommended" {
		t.Errorf("unexpected phase event: %+v", pe)
	}

	hub.Captured(orchestrator.CaptureEvent{
		Shot:   shutter.Shot{ID: "shot-1"},
		Err:    io.ErrUnexpectedEOF,
		Region: geom.Region{Left: 0.2, Top: 0.2, Right: 0.6, Bottom: 0.6},
		Zoom:   2,
	})
	m = readMessage(t, conn)
	var ce struct {
		Shot  shutter.Shot `json:"shot"`
		Error string       `json:"error"`
		Zoom  float64      `json:"zoom"`
	}
	if err := json.Unmarshal(m["data"], &ce); err != nil {
		t.Fatal(err)
	}
	if ce.Shot.ID != "shot-1" || ce.Error != io.ErrUnexpectedEOF.Error() || ce.Zoom != 2 {
		t.Errorf("unexpected capture message: %+v", ce)
	}
}

func TestGuidanceHub_CloseDisconnects(t *testing.T) {
	hub := NewGuidanceHub()
	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()
	waitClients(t, hub, 1)

	hub.Close()
	if hub.Clients() != 0 {
		t.Errorf("expected no clients after Close, got %d", hub.Clients())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
}
