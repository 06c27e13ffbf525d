package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/log"
)

const streamBoundary = "frame"

// StreamHandler serves the preview frames as MJPEG.
type StreamHandler struct {
	source   *frame.Holder
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler reading from source at fps frames per
// second. fps ≤ 0 means 15.
func NewStreamHandler(source *frame.Holder, fps float64) *StreamHandler {
	if fps <= 0 {
		fps = 15
	}
	return &StreamHandler{source: source, interval: time.Duration(float64(time.Second) / fps)}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var buf bytes.Buffer
	for {
		if f := h.source.Load(); f != nil {
			buf.Reset()
			err := imaging.Encode(&buf, f.Image(), imaging.JPEG, imaging.JPEGQuality(80))
			f.Close()
			if err != nil {
				log.Debug("stream encode failed", "error", err)
			} else if err := writePart(w, buf.Bytes()); err != nil {
				return
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", streamBoundary, len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
