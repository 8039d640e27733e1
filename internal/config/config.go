// Package config loads reptrack settings from a TOML file with per-environment
// sections, a .env file and REPTRACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvVar selects the config section when no environment is given explicitly.
const EnvVar = "REPTRACK_ENV"

type Config struct {
	Addr    string `toml:"addr"`
	DataDir string `toml:"data_dir"`
	WebDir  string `toml:"web_dir"`
	// AllowedOrigins are cross-origin dashboards allowed to call the API.
	AllowedOrigins []string `toml:"allowed_origins"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogFile       string `toml:"log_file"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	// camera pipeline
	CameraID        int     `toml:"camera_id"`
	MotionThreshold float64 `toml:"motion_threshold"`
	MinConfidence   float64 `toml:"min_confidence"`
	ModelComplexity int     `toml:"model_complexity"`
	// tracking
	DefaultExercise string `toml:"default_exercise"`
	MetricsEnabled  bool   `toml:"metrics_enabled"`
	Tray            bool   `toml:"tray"`
	// rep event hooks
	PluginDir       string `toml:"plugin_dir"`
	PluginTimeoutMs int    `toml:"plugin_timeout_ms"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

// Get returns the section for env.
func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	dataDir := ".reptrack"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".reptrack")
	}
	return &Config{
		Addr:            ":8080",
		DataDir:         dataDir,
		LogLevel:        "info",
		LogToStdout:     true,
		MotionThreshold: 1.0,
		MinConfidence:   0.5,
		ModelComplexity: 1,
		DefaultExercise: "bicep_curl",
		MetricsEnabled:  true,
		PluginTimeoutMs: 5000,
	}
}

// DBPath is the location of the sqlite database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "reptrack.db")
}

// PluginPath is the hook plugin directory, DataDir/plugins unless set.
func (c *Config) PluginPath() string {
	if c.PluginDir != "" {
		return c.PluginDir
	}
	return filepath.Join(c.DataDir, "plugins")
}

// Env resolves the environment name: explicit value, then REPTRACK_ENV,
// then development.
func Env(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvVar); env != "" {
		return env
	}
	return "development"
}

// Load reads the env section of the TOML file at path. A missing file is
// not an error: defaults are used. Values missing from the section keep
// their defaults. Environment overrides are applied last.
func Load(env, path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		section, err := loadSection(env, path)
		if err != nil {
			return nil, err
		}
		if section != nil {
			cfg = section
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSection(env, path string) (*Config, error) {
	tomlData := Toml{Development: Default(), Production: Default()}
	if _, err := toml.DecodeFile(path, &tomlData); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return tomlData.Get(env)
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("REPTRACK_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("REPTRACK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("REPTRACK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("REPTRACK_CAMERA_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REPTRACK_CAMERA_ID: %w", err)
		}
		cfg.CameraID = id
	}
	return nil
}
