// Package tray provides the desktop status menu for autoframe.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/autoframe/internal/orchestrator"
)

// Tray is the system tray menu. It is an orchestrator.Sink showing the current
// phase and the last capture.
type Tray struct {
	orchestrator.NopSink

	onToggle func(enabled bool)
	onReset  func()
	onOpen   func()
	onQuit   func()

	mu          sync.RWMutex
	enabled     bool
	phaseTitle  string
	lastTitle   string
	menuToggle  *systray.MenuItem
	menuPhase   *systray.MenuItem
	menuLastCap *systray.MenuItem
}

// New creates a Tray with capture enabled.
func New() *Tray {
	return &Tray{
		enabled:    true,
		phaseTitle: phaseTitle(orchestrator.Idle),
		lastTitle:  lastCaptureTitle(nil),
	}
}

// OnToggle sets the callback for the enable toggle.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnReset sets the callback for the reset item.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnOpen sets the callback for the open overlay item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It must be called from the main goroutine and
// blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("autoframe")
	systray.SetTooltip("autoframe guided capture")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle guided capture")
	systray.AddSeparator()
	t.menuPhase = systray.AddMenuItem(t.phaseTitle, "Current capture phase")
	t.menuPhase.Disable()
	t.menuLastCap = systray.AddMenuItem(t.lastTitle, "Last capture")
	t.menuLastCap.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuReset := systray.AddMenuItem("Reset", "Drop the current suggestion")
	menuOpen := systray.AddMenuItem("Open Overlay...", "Open the overlay in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit autoframe")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuReset.ClickedCh:
				t.call(func() func() { return t.onReset })
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	fn := get()
	t.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Outside the lock: the callback may reach back into the tray.
	if callback != nil {
		callback(enabled)
	}
}

// PhaseChanged updates the phase line.
func (t *Tray) PhaseChanged(e orchestrator.PhaseEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phaseTitle = phaseTitle(e.To)
	if t.menuPhase != nil {
		t.menuPhase.SetTitle(t.phaseTitle)
	}
}

// Captured updates the last capture line.
func (t *Tray) Captured(e orchestrator.CaptureEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastTitle = lastCaptureTitle(&e)
	if t.menuLastCap != nil {
		t.menuLastCap.SetTitle(t.lastTitle)
	}
}

// IsEnabled returns the toggle state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Titles returns the phase and last capture lines as shown in the menu.
func (t *Tray) Titles() (phase, last string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.phaseTitle, t.lastTitle
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func phaseTitle(p orchestrator.Phase) string {
	return "Phase: " + p.String()
}

func lastCaptureTitle(e *orchestrator.CaptureEvent) string {
	switch {
	case e == nil:
		return "Last: none"
	case e.Err != nil:
		return "Last: failed (" + e.Err.Error() + ")"
	default:
		return "Last: " + e.Time.Format("15:04:05")
	}
}
