package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOverlayURL(t *testing.T) {
	tests := []struct {
		listen string
		want   string
	}{
		{":8080", "http://localhost:8080/"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000/"},
	}
	for _, tt := range tests {
		if got := overlayURL(tt.listen); got != tt.want {
			t.Errorf("overlayURL(%q) = %q, want %q", tt.listen, got, tt.want)
		}
	}
}

func TestFindWebDir_DataDir(t *testing.T) {
	dataDir := t.TempDir()
	web := filepath.Join(dataDir, "web")
	if err := os.Mkdir(web, 0o755); err != nil {
		t.Fatal(err)
	}

	wd, _ := os.Getwd()
	if _, err := os.Stat(filepath.Join(wd, "web")); err == nil {
		t.Skip("working directory has its own web dir")
	}
	if _, err := os.Stat(filepath.Join(wd, "..", "web")); err == nil {
		t.Skip("parent directory has a web dir")
	}

	if got := findWebDir(dataDir); got != web {
		t.Errorf("findWebDir() = %q, want %q", got, web)
	}
	if got := findWebDir(t.TempDir()); got != "" {
		t.Errorf("findWebDir() = %q, want empty", got)
	}
}
