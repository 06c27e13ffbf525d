// Package main provides a hook that shows a desktop notification for capture
// events, through AppleScript on macOS and notify-send elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request is the subset of the hook request this hook reads.
type Request struct {
	Event    string  `json:"event"`
	ShotPath string  `json:"shot_path"`
	Error    string  `json:"error"`
	Zoom     float64 `json:"zoom"`
}

// Response is written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// messageBuilder returns the notification title and body for a request.
type messageBuilder func(Request) (string, string)

var messageBuilders = map[string]messageBuilder{
	"capture": func(r Request) (string, string) {
		return "Photo captured", fmt.Sprintf("%.1fx: %s", r.Zoom, r.ShotPath)
	},
	"capture_failed": func(r Request) (string, string) {
		return "Capture failed", r.Error
	},
	"recommendation": func(r Request) (string, string) {
		return "Framing suggested", "Center the highlighted region"
	},
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	build, ok := messageBuilders[req.Event]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown event: %s", req.Event))
		return
	}

	title, body := build(req)
	if err := notify(title, body); err != nil {
		writeErrorResponse(fmt.Sprintf("notify failed: %v", err))
		return
	}
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func notify(title, body string) error {
	name, args := notifyCommand(runtime.GOOS, title, body)
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// notifyCommand returns the command showing a notification on goos.
func notifyCommand(goos, title, body string) (string, []string) {
	if goos == "darwin" {
		script := fmt.Sprintf(`display notification %s with title %s`, appleString(body), appleString(title))
		return "osascript", []string{"-e", script}
	}
	return "notify-send", []string{"--app-name=autoframe", title, body}
}

// appleString quotes s as an AppleScript string literal.
func appleString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
