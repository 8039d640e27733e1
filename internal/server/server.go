// Package server provides the HTTP and WebSocket API of the rep tracker.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/reptrack/internal/metrics"
	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/server/api"
	"github.com/ayusman/reptrack/internal/session"
	"github.com/ayusman/reptrack/internal/store"
)

// Tracker is the local camera pipeline as seen by the server.
type Tracker interface {
	api.Tracker
	LatestFrame() []byte
}

// Config holds the server configuration.
type Config struct {
	StaticDir       string
	DefaultExercise string
	Sessions        *session.Manager
	// Store enables exercise persistence, workouts and settings.
	Store *store.Store
	// Tracker enables the camera and stream endpoints.
	Tracker Tracker
	// Metrics enables request metrics; Gatherer serves /metrics.
	Metrics  *metrics.Manager
	Gatherer prometheus.Gatherer
	// AllowedOrigins lists cross-origin clients; "*" admits any.
	AllowedOrigins []string
}

// Server represents the HTTP server of the rep tracker.
type Server struct {
	config     Config
	router     *mux.Router
	handler    http.Handler
	start      time.Time
	httpServer *http.Server
}

// New creates a new Server with the given configuration. Without a session
// manager it serves the built-in exercises with no persistence.
func New(config Config) *Server {
	if config.Sessions == nil {
		config.Sessions = session.NewManager(repcount.DefaultCatalog(), config.Metrics)
	}
	s := &Server{
		config: config,
		start:  time.Now(),
	}
	s.router = s.routerSetup()
	s.handler = Cors(config.AllowedOrigins)(s.router)
	return s
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	catalog := s.config.Sessions.Catalog()
	api.NewExerciseHandler(catalog, s.config.Store).Routes(r)

	sessions := api.NewSessionHandler(s.config.Sessions, s.config.Store, s.config.DefaultExercise)
	sessions.Routes(r)
	r.Handle("/api/sessions/{id}/ws", NewSessionStreamHandler(s.config.Sessions)).Methods(http.MethodGet)

	if s.config.Store != nil {
		api.NewWorkoutHandler(s.config.Store).Routes(r)
		api.NewSettingsHandler(s.config.Store, catalog).Routes(r)
	}

	if s.config.Tracker != nil {
		api.NewCameraHandler(s.config.Tracker, sessions).Routes(r)
		r.Handle("/api/stream", NewStreamHandler(s.config.Tracker)).Methods(http.MethodGet)
	}

	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	if s.config.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.StaticDir)))
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Use(PanicRecovery(s.config.Metrics))
	r.Use(LogRequest())
	if s.config.Metrics != nil {
		r.Use(RequestMetrics(s.config.Metrics))
	}
	r.Use(DrainAndCloseRequest())

	return r
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":   "ok",
		"uptime":   time.Since(s.start).Round(time.Second).String(),
		"sessions": s.config.Sessions.ActiveCount(),
	}
	if s.config.Tracker != nil {
		response["tracking"] = s.config.Tracker.IsTracking()
	}
	writeJSON(w, http.StatusOK, response)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Handler:           s,
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof(" > server listening on: [%s]", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("server stopped")
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Debugf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
