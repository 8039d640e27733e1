// Package tray provides a system tray control for camera tracking.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/reptrack/internal/repcount"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(tracking bool) error
	onOpen   func()
	onQuit   func()
	tracking bool
	mu       sync.RWMutex

	menuToggle *systray.MenuItem
	menuReps   *systray.MenuItem
}

// New creates a new Tray with tracking off.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback run when tracking is switched on or off. When
// it returns an error the state is left unchanged.
func (t *Tray) OnToggle(fn func(tracking bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback run when the dashboard menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback run when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray and blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the system tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("RepTrack")
	systray.SetTooltip("RepTrack exercise counter")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleLabel(t.tracking), "Start or stop camera tracking")
	systray.AddSeparator()
	t.menuReps = systray.AddMenuItem("Reps: -", "Current session")
	t.menuReps.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit RepTrack")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.RLock()
	want := !t.tracking
	callback := t.onToggle
	t.mu.RUnlock()

	// callback runs outside the lock; it may call SetSnapshot
	if callback != nil {
		if err := callback(want); err != nil {
			log.Warnf("tray toggle: %v", err)
			return
		}
	}
	t.SetTracking(want)
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// SetTracking updates the tracking state shown in the menu.
func (t *Tray) SetTracking(tracking bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracking = tracking
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleLabel(tracking))
	}
}

// SetSnapshot shows the live rep count of the tracked session.
func (t *Tray) SetSnapshot(snap repcount.Snapshot) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuReps != nil {
		t.menuReps.SetTitle(repsLabel(snap))
	}
}

// IsTracking returns the tracking state shown in the menu.
func (t *Tray) IsTracking() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tracking
}

func toggleLabel(tracking bool) string {
	if tracking {
		return "● Tracking"
	}
	return "○ Start Tracking"
}

func repsLabel(snap repcount.Snapshot) string {
	label := fmt.Sprintf("Reps: %d", snap.Reps)
	if snap.TargetReps > 0 {
		label = fmt.Sprintf("Reps: %d/%d", snap.Reps, snap.TargetReps)
	}
	if snap.TargetReached {
		return label + " ✓"
	}
	return label + " (" + string(snap.Phase) + ")"
}
