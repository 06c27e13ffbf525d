package tray

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/autoframe/internal/orchestrator"
)

func TestTray_Defaults(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Error("expected tray to start enabled")
	}
	phase, last := tr.Titles()
	if phase != "Phase: idle" || last != "Last: none" {
		t.Errorf("unexpected titles %q, %q", phase, last)
	}
}

func TestTray_TracksControllerEvents(t *testing.T) {
	tr := New()
	var sink orchestrator.Sink = tr

	sink.PhaseChanged(orchestrator.PhaseEvent{From: orchestrator.Aligning, To: orchestrator.Zooming})
	if phase, _ := tr.Titles(); phase != "Phase: zooming" {
		t.Errorf("phase title = %q", phase)
	}

	at := time.Date(2026, 3, 4, 9, 15, 30, 0, time.Local)
	sink.Captured(orchestrator.CaptureEvent{Time: at})
	if _, last := tr.Titles(); last != "Last: 09:15:30" {
		t.Errorf("last title = %q", last)
	}

	sink.Captured(orchestrator.CaptureEvent{Time: at, Err: errors.New("no frame available")})
	if _, last := tr.Titles(); last != "Last: failed (no frame available)" {
		t.Errorf("last title = %q", last)
	}
}

func TestTray_ToggleCallsBack(t *testing.T) {
	tr := New()
	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("expected enabled after two toggles")
	}
}

func TestTray_CallbacksOptional(t *testing.T) {
	tr := New()
	tr.call(func() func() { return tr.onReset })

	reset := 0
	tr.OnReset(func() { reset++ })
	tr.call(func() func() { return tr.onReset })
	if reset != 1 {
		t.Errorf("reset called %d times, want 1", reset)
	}
}
