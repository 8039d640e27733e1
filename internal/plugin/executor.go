package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single plugin run.
const DefaultTimeout = 5 * time.Second

// Executor runs plugins with a timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor. A non-positive timeout means
// DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Execute writes req to the plugin's stdin and parses its stdout as a
// Response. The manifest config is attached to the request.
func (e *Executor) Execute(ctx context.Context, plugin *Plugin, req Request) (*Response, error) {
	// Bound the run by the executor timeout
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Run from the plugin directory so relative paths resolve there
	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path
	// Children that keep the output pipes open must not hold Run past the kill
	cmd.WaitDelay = time.Second

	// Marshal the request, with the manifest config attached
	req.Config = plugin.Manifest.Config
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// Request JSON goes to stdin
	cmd.Stdin = bytes.NewReader(reqJSON)

	// Capture stdout and stderr
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Run the plugin
	err = cmd.Run()

	// Timeout wins over whatever exit error the kill produced
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("plugin %s timed out after %s", plugin.Manifest.Name, e.timeout)
	}
	// Execution error, with stderr when the plugin wrote any
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("plugin %s failed: %w, stderr: %s", plugin.Manifest.Name, err, stderr.String())
		}
		return nil, fmt.Errorf("plugin %s failed: %w", plugin.Manifest.Name, err)
	}

	// Parse the response from stdout
	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("parse plugin response: %w, stdout: %s", err, stdout.String())
	}
	return &response, nil
}
