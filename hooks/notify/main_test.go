package main

import (
	"reflect"
	"testing"
)

func TestMessageBuilders(t *testing.T) {
	tests := []struct {
		event     string
		req       Request
		wantTitle string
		wantBody  string
	}{
		{"capture", Request{ShotPath: "/a/b.jpg", Zoom: 2.5}, "Photo captured", "2.5x: /a/b.jpg"},
		{"capture_failed", Request{Error: "no frame available"}, "Capture failed", "no frame available"},
		{"recommendation", Request{}, "Framing suggested", "Center the highlighted region"},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			title, body := messageBuilders[tt.event](tt.req)
			if title != tt.wantTitle || body != tt.wantBody {
				t.Errorf("got (%q, %q), want (%q, %q)", title, body, tt.wantTitle, tt.wantBody)
			}
		})
	}
}

func TestNotifyCommand(t *testing.T) {
	name, args := notifyCommand("darwin", `Say "hi"`, `a\b`)
	if name != "osascript" {
		t.Fatalf("name = %s, want osascript", name)
	}
	want := []string{"-e", `display notification "a\\b" with title "Say \"hi\""`}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %q, want %q", args, want)
	}

	name, args = notifyCommand("linux", "T", "B")
	if name != "notify-send" || !reflect.DeepEqual(args, []string{"--app-name=autoframe", "T", "B"}) {
		t.Errorf("linux command = %s %q", name, args)
	}
}
