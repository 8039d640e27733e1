// Package plugin runs external programs on workout events such as a
// counted rep or a reached target.
package plugin

import (
	"encoding/json"
	"slices"

	"github.com/ayusman/reptrack/internal/session"
)

// Event names a workout event plugins can subscribe to.
type Event string

const (
	EventRep            Event = "rep"
	EventTargetReached  Event = "target_reached"
	EventSessionStopped Event = "session_stopped"
)

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []Event         `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Event      Event            `json:"event"`
	SessionID  string           `json:"session_id"`
	Exercise   string           `json:"exercise"`
	Reps       int              `json:"reps"`
	TargetReps int              `json:"target_reps,omitempty"`
	Summary    *session.Summary `json:"summary,omitempty"`
	Config     json.RawMessage  `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the plugin subscribed to event.
func (p *Plugin) Handles(event Event) bool {
	return slices.Contains(p.Manifest.Events, event)
}
