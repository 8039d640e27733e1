package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/reptrack/internal/config"
	"github.com/ayusman/reptrack/internal/logging"
	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/store"
)

var (
	configPath string
	envName    string
)

var rootCmd = &cobra.Command{
	Use:           "reptrack",
	Short:         "Count exercise repetitions from body pose landmarks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "reptrack.toml", "Path to the TOML config file")
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", "", "Config section: development or production (default $"+config.EnvVar+")")

	rootCmd.AddCommand(serveCmd, exercisesCmd, replayCmd, historyCmd, pluginsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config and sets up logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Env(envName), configPath)
	if err != nil {
		return nil, err
	}

	logFile := cfg.LogFile
	if logFile != "" && !filepath.IsAbs(logFile) {
		logFile = filepath.Join(cfg.DataDir, logFile)
	}
	logging.Setup(logging.SetupParams{
		LogFileName:   logFile,
		LogToStdout:   cfg.LogToStdout,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: cfg.LogFormatJSON,
	})
	return cfg, nil
}

// openStore opens the database and builds a catalog holding the built-in
// and stored exercises.
func openStore(cfg *config.Config) (*store.Store, *repcount.Catalog, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	catalog := repcount.DefaultCatalog()
	loaded, errs := st.Exercises().LoadInto(catalog)
	for _, err := range errs {
		log.Warnf("skipping stored exercise: %v", err)
	}
	log.Debugf("loaded %d custom exercises", loaded)

	return st, catalog, nil
}

func printHeader(title string) {
	cyanBold := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Println(cyanBold("== " + title + " =="))
}

func printMetric(label string, value any) {
	yellowBold := color.New(color.FgYellow, color.Bold).SprintFunc()
	fmt.Printf("  %s: %v\n", yellowBold(label), value)
}
