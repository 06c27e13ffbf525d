// Package main provides a capture hook that files each shot into a dated
// archive directory and writes a small thumbnail next to it.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// Request is the subset of the hook request this hook reads.
type Request struct {
	Event    string          `json:"event"`
	ShotID   string          `json:"shot_id"`
	ShotPath string          `json:"shot_path"`
	Time     time.Time       `json:"time"`
	Config   json.RawMessage `json:"config"`
}

// Response is written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the manifest config block.
type Config struct {
	Dir       string `json:"dir"`       // Default: ~/Pictures/autoframe
	Thumbnail int    `json:"thumbnail"` // Long side in pixels, 0 disables. Default: 256
}

type result struct {
	Archived  string `json:"archived"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}
	if req.Event != "capture" {
		writeErrorResponse(fmt.Sprintf("unsupported event: %s", req.Event))
		return
	}

	cfg, err := parseConfig(req.Config)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	res, err := archive(req, cfg)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("archive %s failed: %v", req.ShotID, err))
		return
	}
	data, _ := json.Marshal(res)
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

func parseConfig(raw json.RawMessage) (Config, error) {
	cfg := Config{Thumbnail: 256}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, err
		}
		cfg.Dir = filepath.Join(home, "Pictures", "autoframe")
	}
	return cfg, nil
}

// archive copies the shot into <dir>/<yyyy-mm-dd>/ and writes <id>_thumb.jpg.
func archive(req Request, cfg Config) (result, error) {
	if req.ShotPath == "" {
		return result{}, errors.New("shot_path is required")
	}
	at := req.Time
	if at.IsZero() {
		at = time.Now()
	}
	dir := filepath.Join(cfg.Dir, at.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result{}, err
	}

	dst := filepath.Join(dir, filepath.Base(req.ShotPath))
	if err := copyFile(req.ShotPath, dst); err != nil {
		return result{}, err
	}
	res := result{Archived: dst}

	if cfg.Thumbnail > 0 {
		img, err := imaging.Open(req.ShotPath)
		if err != nil {
			return res, fmt.Errorf("open shot: %w", err)
		}
		thumb := imaging.Fit(img, cfg.Thumbnail, cfg.Thumbnail, imaging.Lanczos)
		name := req.ShotID
		if name == "" {
			name = filepath.Base(req.ShotPath)
		}
		res.Thumbnail = filepath.Join(dir, name+"_thumb.jpg")
		if err := imaging.Save(thumb, res.Thumbnail, imaging.JPEGQuality(85)); err != nil {
			return res, fmt.Errorf("save thumbnail: %w", err)
		}
	}
	return res, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}
