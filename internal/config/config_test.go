package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToml = `
[development]
addr = ":9090"
log_level = "debug"
default_exercise = "squat"

plugin_dir = "/opt/reptrack/hooks"
allowed_origins = ["http://localhost:3000"]

[production]
addr = ":80"
log_format_json = true
camera_id = 2
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testToml), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t)

	t.Run("development section", func(t *testing.T) {
		cfg, err := Load("dev", path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "squat", cfg.DefaultExercise)
		// untouched keys keep defaults
		assert.Equal(t, 1.0, cfg.MotionThreshold)
		assert.Equal(t, 5000, cfg.PluginTimeoutMs)
		assert.Equal(t, "/opt/reptrack/hooks", cfg.PluginPath())
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	})

	t.Run("production section", func(t *testing.T) {
		cfg, err := Load("production", path)
		require.NoError(t, err)
		assert.Equal(t, ":80", cfg.Addr)
		assert.True(t, cfg.LogFormatJSON)
		assert.Equal(t, 2, cfg.CameraID)
		assert.Equal(t, "bicep_curl", cfg.DefaultExercise)
		assert.Equal(t, filepath.Join(cfg.DataDir, "plugins"), cfg.PluginPath())
	})

	t.Run("unknown env", func(t *testing.T) {
		_, err := Load("staging", path)
		assert.Error(t, err)
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := Load("dev", filepath.Join(t.TempDir(), "nope.toml"))
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
	})

	t.Run("malformed file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(bad, []byte("[development\naddr="), 0644))
		_, err := Load("dev", bad)
		assert.Error(t, err)
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REPTRACK_ADDR", "127.0.0.1:7000")
	t.Setenv("REPTRACK_DATA_DIR", "/tmp/reptrack-test")
	t.Setenv("REPTRACK_CAMERA_ID", "3")

	cfg, err := Load("dev", writeConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, "/tmp/reptrack-test", cfg.DataDir)
	assert.Equal(t, 3, cfg.CameraID)
	assert.Equal(t, filepath.Join("/tmp/reptrack-test", "reptrack.db"), cfg.DBPath())

	t.Setenv("REPTRACK_CAMERA_ID", "front")
	_, err = Load("dev", "")
	assert.Error(t, err)
}

func TestEnv(t *testing.T) {
	t.Setenv(EnvVar, "")
	assert.Equal(t, "development", Env(""))

	t.Setenv(EnvVar, "production")
	assert.Equal(t, "production", Env(""))
	assert.Equal(t, "dev", Env("dev"))
}
