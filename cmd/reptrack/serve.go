package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/reptrack/internal/app"
	"github.com/ayusman/reptrack/internal/config"
	"github.com/ayusman/reptrack/internal/metrics"
	"github.com/ayusman/reptrack/internal/plugin"
	"github.com/ayusman/reptrack/internal/pose"
	"github.com/ayusman/reptrack/internal/server"
	"github.com/ayusman/reptrack/internal/session"
	"github.com/ayusman/reptrack/internal/store"
	"github.com/ayusman/reptrack/internal/tray"
)

var (
	serveAddr string
	serveTray bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the camera pipeline and optionally the tray icon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr = serveAddr
		}
		if cmd.Flags().Changed("tray") {
			cfg.Tray = serveTray
		}
		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", ":8080", "Listen address")
	serveCmd.Flags().BoolVar(&serveTray, "tray", false, "Show the system tray icon")
}

func serve(cfg *config.Config) error {
	st, catalog, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var (
		metricsManager *metrics.Manager
		registry       *prometheus.Registry
	)
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metricsManager = metrics.NewManager("reptrack", "server", registry)
	}

	sessions := session.NewManager(catalog, metricsManager)
	sessions.OnStop(func(sum session.Summary) {
		if err := st.Workouts().Record(sum); err != nil {
			log.Errorf("record workout %s: %v", sum.SessionID, err)
		}
	})

	hooks, err := startHooks(cfg, sessions)
	if err != nil {
		return err
	}

	detectorConfig := pose.DefaultConfig()
	detectorConfig.ModelComplexity = cfg.ModelComplexity
	detectorConfig.MinConfidence = cfg.MinConfidence

	application := app.New(app.Config{
		Sessions:       sessions,
		Metrics:        metricsManager,
		CameraID:       cfg.CameraID,
		MotionThresh:   cfg.MotionThreshold,
		DetectorConfig: detectorConfig,
	})
	defer application.Close()

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		log.Infof("serving static files from %s", webDir)
	}

	srvConfig := server.Config{
		StaticDir:       webDir,
		DefaultExercise: cfg.DefaultExercise,
		Sessions:        sessions,
		Store:           st,
		Tracker:         application,
		Metrics:         metricsManager,
		AllowedOrigins:  cfg.AllowedOrigins,
	}
	if registry != nil {
		srvConfig.Gatherer = registry
	}
	srv := server.New(srvConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx, cfg.Addr)
	}()

	if cfg.Tray {
		runTray(ctx, stop, cfg, st, application)
	}

	err = <-errCh
	for _, sum := range sessions.StopAll() {
		log.Infof("stopped session %s on shutdown (%d reps)", sum.SessionID, sum.Reps)
	}
	hooks.Close()
	return err
}

// startHooks discovers rep event plugins and attaches them to sessions.
func startHooks(cfg *config.Config, sessions *session.Manager) (*plugin.Dispatcher, error) {
	manager := plugin.NewManager(cfg.PluginPath())
	if err := manager.Discover(); err != nil {
		return nil, err
	}
	for _, p := range manager.List() {
		log.WithFields(log.Fields{"plugin": p.Manifest.Name, "events": p.Manifest.Events}).Info("loaded plugin")
	}

	timeout := time.Duration(cfg.PluginTimeoutMs) * time.Millisecond
	dispatcher := plugin.NewDispatcher(manager, plugin.NewExecutor(timeout), plugin.DefaultQueueSize)
	dispatcher.Attach(sessions)
	return dispatcher, nil
}

// runTray blocks on the tray loop until the tray quits or ctx ends.
func runTray(ctx context.Context, stop context.CancelFunc, cfg *config.Config, st *store.Store, application *app.App) {
	t := tray.New()
	t.OnToggle(func(tracking bool) error {
		if !tracking {
			_, err := application.StopTracking()
			if errors.Is(err, session.ErrSessionStopped) {
				return nil
			}
			return err
		}
		exercise := st.Settings().GetOr(store.SettingDefaultExercise, cfg.DefaultExercise)
		_, err := application.StartTracking(exercise)
		return err
	})
	t.OnOpen(func() {
		if err := openBrowser(dashboardURL(cfg.Addr)); err != nil {
			log.Warnf("open browser: %v", err)
		}
	})
	t.OnQuit(stop)
	application.OnSnapshot(t.SetSnapshot)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func dashboardURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir looks for the dashboard in web, ../web, ../../web and
// <dataDir>/web.
func findWebDir(dataDir string) string {
	candidates := []string{"web", filepath.Join("..", "web"), filepath.Join("..", "..", "web"), filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
