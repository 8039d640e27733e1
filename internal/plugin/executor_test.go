package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePlugin creates an executable shell plugin in its own directory.
func writePlugin(t *testing.T, root, name, script string, events ...Event) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte("#!/bin/sh\n"+script), 0o755))

	manifest := Manifest{Name: name, Version: "1.0.0", Executable: "run.sh", Events: events}
	data, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.json"), data, 0o644))

	return &Plugin{Manifest: manifest, Path: dir, Executable: filepath.Join(dir, "run.sh")}
}

func TestExecutor_Execute(t *testing.T) {
	p := writePlugin(t, t.TempDir(), "hello", `echo '{"success":true,"data":{"message":"hello"}}'`)

	resp, err := NewExecutor(time.Second).Execute(context.Background(), p, Request{Event: EventRep})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.JSONEq(t, `{"message":"hello"}`, string(resp.Data))
}

func TestExecutor_ReadsStdin(t *testing.T) {
	p := writePlugin(t, t.TempDir(), "echo", `INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"`)
	p.Manifest.Config = json.RawMessage(`{"voice":"low"}`)

	resp, err := NewExecutor(time.Second).Execute(context.Background(), p, Request{
		Event:      EventTargetReached,
		SessionID:  "s1",
		Exercise:   "squat",
		Reps:       10,
		TargetReps: 10,
	})
	require.NoError(t, err)

	var got Request
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, EventTargetReached, got.Event)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, 10, got.Reps)
	assert.JSONEq(t, `{"voice":"low"}`, string(got.Config))
}

func TestExecutor_Errors(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{"non-zero exit", "echo 'boom' >&2\nexit 3", "boom"},
		{"invalid json", "echo 'not json'", "parse plugin response"},
		{"timeout", "exec sleep 5", "timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writePlugin(t, root, tt.name, tt.script)
			_, err := NewExecutor(200*time.Millisecond).Execute(context.Background(), p, Request{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExecutor_MissingExecutable(t *testing.T) {
	p := &Plugin{Manifest: Manifest{Name: "ghost"}, Path: t.TempDir(), Executable: "/nonexistent/ghost"}
	_, err := NewExecutor(0).Execute(context.Background(), p, Request{})
	assert.Error(t, err)
}
