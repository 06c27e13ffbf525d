package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autoframe.log")

	Init(Options{Level: "debug", File: path})
	t.Cleanup(func() { Init(Options{Level: "info"}) })

	Info("controller started", "phase", "idle")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "controller started")
	assert.Contains(t, string(data), "phase=idle")
}

func TestL_LazyInit(t *testing.T) {
	mu.Lock()
	logger = nil
	mu.Unlock()

	require.NotNil(t, L())
	require.NotNil(t, With("component", "test"))
}
