// Package main provides a plugin that speaks rep counts aloud.
// It uses say on macOS and spd-say or espeak elsewhere.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event      string          `json:"event"`
	SessionID  string          `json:"session_id"`
	Exercise   string          `json:"exercise"`
	Reps       int             `json:"reps"`
	TargetReps int             `json:"target_reps"`
	Config     json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is read from the manifest.
type Config struct {
	// Every announces only every Nth rep. Zero or one announces all.
	Every int `json:"every"`
	// DryRun prints the phrase instead of speaking it.
	DryRun bool `json:"dry_run"`
}

type eventHandler func(req Request, cfg Config) string

var eventHandlers = map[string]eventHandler{
	"rep":             announceRep,
	"target_reached":  announceTarget,
	"session_stopped": announceStop,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	handler, ok := eventHandlers[req.Event]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown event: %s", req.Event))
		return
	}

	phrase := handler(req, cfg)
	if phrase != "" && !cfg.DryRun {
		if err := speak(phrase); err != nil {
			writeErrorResponse(fmt.Sprintf("speak: %v", err))
			return
		}
	}
	writeSuccessResponse(phrase)
}

func announceRep(req Request, cfg Config) string {
	if cfg.Every > 1 && req.Reps%cfg.Every != 0 {
		return ""
	}
	return fmt.Sprintf("%d", req.Reps)
}

func announceTarget(req Request, _ Config) string {
	return fmt.Sprintf("%d reps, target reached", req.Reps)
}

func announceStop(req Request, _ Config) string {
	if req.Reps == 1 {
		return "Done. 1 rep"
	}
	return fmt.Sprintf("Done. %d reps", req.Reps)
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse(phrase string) {
	data, _ := json.Marshal(map[string]string{"phrase": phrase})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

// speak runs the first text-to-speech command found on the system.
func speak(phrase string) error {
	candidates := [][]string{{"spd-say", "--wait"}, {"espeak"}}
	if runtime.GOOS == "darwin" {
		candidates = [][]string{{"say"}}
	}
	for _, c := range candidates {
		path, err := exec.LookPath(c[0])
		if err != nil {
			continue
		}
		args := append(c[1:], phrase)
		output, err := exec.Command(path, args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("%w: %s", err, string(output))
		}
		return nil
	}
	return errors.New("no text-to-speech command found")
}
