package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/reptrack/internal/app"
	"github.com/ayusman/reptrack/internal/session"
)

//go:generate mockgen -source=$GOFILE -destination=tracker_mocks_test.go -package=api

// Tracker controls local camera tracking.
type Tracker interface {
	StartTracking(exerciseID string) (*session.Session, error)
	StopTracking() (session.Summary, error)
	IsTracking() bool
	Session() *session.Session
}

// CameraHandler starts and stops camera tracking.
type CameraHandler struct {
	tracker  Tracker
	sessions *SessionHandler
}

// NewCameraHandler creates a CameraHandler. The session handler supplies
// the default exercise.
func NewCameraHandler(tracker Tracker, sessions *SessionHandler) *CameraHandler {
	return &CameraHandler{tracker: tracker, sessions: sessions}
}

// Routes registers the camera endpoints on r.
func (h *CameraHandler) Routes(r *mux.Router) {
	r.HandleFunc("/api/camera", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api/camera/start", h.start).Methods(http.MethodPost)
	r.HandleFunc("/api/camera/stop", h.stop).Methods(http.MethodPost)
}

type cameraStatusResponse struct {
	Tracking bool          `json:"tracking"`
	Session  *session.Info `json:"session,omitempty"`
}

func (h *CameraHandler) currentStatus() cameraStatusResponse {
	status := cameraStatusResponse{Tracking: h.tracker.IsTracking()}
	if s := h.tracker.Session(); s != nil {
		info := s.Info()
		status.Session = &info
	}
	return status
}

// status handles GET /api/camera.
func (h *CameraHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentStatus())
}

// start handles POST /api/camera/start.
func (h *CameraHandler) start(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if _, err := h.tracker.StartTracking(h.sessions.exerciseOrDefault(req.Exercise)); err != nil {
		writeError(w, trackerStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, h.currentStatus())
}

// stop handles POST /api/camera/stop and returns the session summary.
func (h *CameraHandler) stop(w http.ResponseWriter, r *http.Request) {
	summary, err := h.tracker.StopTracking()
	if err != nil {
		writeError(w, trackerStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func trackerStatus(err error) int {
	if errors.Is(err, app.ErrAlreadyTracking) || errors.Is(err, app.ErrNotTracking) {
		return http.StatusConflict
	}
	return sessionStatus(err)
}
