package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/reptrack/internal/pose"
	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/session"
	"github.com/ayusman/reptrack/internal/store"
)

// SessionHandler serves tracking sessions fed with client-side poses.
type SessionHandler struct {
	sessions        *session.Manager
	store           *store.Store
	defaultExercise string
}

// NewSessionHandler creates a SessionHandler. When a request omits the
// exercise, the stored default_exercise setting is used, then
// defaultExercise. s may be nil.
func NewSessionHandler(sessions *session.Manager, s *store.Store, defaultExercise string) *SessionHandler {
	return &SessionHandler{sessions: sessions, store: s, defaultExercise: defaultExercise}
}

// Routes registers the session endpoints on r.
func (h *SessionHandler) Routes(r *mux.Router) {
	r.HandleFunc("/api/sessions", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions", h.create).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", h.stop).Methods(http.MethodDelete)
	r.HandleFunc("/api/sessions/{id}/restart", h.restart).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/frames", h.frames).Methods(http.MethodPost)
}

type createSessionRequest struct {
	Exercise string `json:"exercise"`
}

type listSessionsResponse struct {
	Sessions []session.Info `json:"sessions"`
}

type framesResponse struct {
	Snapshots []repcount.Snapshot `json:"snapshots"`
	State     repcount.Snapshot   `json:"state"`
}

// sessionStatus maps session errors to HTTP status codes.
func sessionStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionStopped):
		return http.StatusConflict
	case errors.Is(err, repcount.ErrUnknownExercise):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *SessionHandler) exerciseOrDefault(id string) string {
	if id != "" {
		return id
	}
	if h.store != nil {
		return h.store.Settings().GetOr(store.SettingDefaultExercise, h.defaultExercise)
	}
	return h.defaultExercise
}

// list handles GET /api/sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.List()
	response := listSessionsResponse{Sessions: make([]session.Info, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, s.Info())
	}
	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/sessions. An empty body starts the default
// exercise.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s, err := h.sessions.Start(h.exerciseOrDefault(req.Exercise))
	if err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.Info())
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.Info())
}

// stop handles DELETE /api/sessions/{id} and returns the summary.
func (h *SessionHandler) stop(w http.ResponseWriter, r *http.Request) {
	summary, err := h.sessions.Stop(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// restart handles POST /api/sessions/{id}/restart.
func (h *SessionHandler) restart(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return
	}
	snap, err := s.Restart()
	if err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// frames handles POST /api/sessions/{id}/frames. The body is a single pose
// or an array of poses; null array entries are frames with nobody in view.
func (h *SessionHandler) frames(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, sessionStatus(err), err.Error())
		return
	}

	poses, err := decodePoses(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response := framesResponse{Snapshots: make([]repcount.Snapshot, 0, len(poses))}
	for _, p := range poses {
		snap, err := s.Feed(p)
		if err != nil {
			writeError(w, sessionStatus(err), err.Error())
			return
		}
		response.Snapshots = append(response.Snapshots, snap)
	}
	response.State = s.Snapshot()
	writeJSON(w, http.StatusOK, response)
}

func decodePoses(w http.ResponseWriter, r *http.Request) ([]*pose.Pose, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.New("failed to read body")
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}

	if body[0] == '[' {
		var poses []*pose.Pose
		if err := json.Unmarshal(body, &poses); err != nil {
			return nil, errors.New("invalid pose array: " + err.Error())
		}
		return poses, nil
	}

	p, err := pose.Decode(body)
	if err != nil {
		return nil, err
	}
	return []*pose.Pose{p}, nil
}
