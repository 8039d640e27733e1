package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/reptrack/internal/store"
)

const (
	defaultWorkoutLimit = 50
	maxWorkoutLimit     = 500
)

// WorkoutHandler serves the workout history.
type WorkoutHandler struct {
	store *store.Store
}

// NewWorkoutHandler creates a WorkoutHandler.
func NewWorkoutHandler(s *store.Store) *WorkoutHandler {
	return &WorkoutHandler{store: s}
}

// Routes registers the workout endpoints on r.
func (h *WorkoutHandler) Routes(r *mux.Router) {
	r.HandleFunc("/api/workouts", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/workouts/totals", h.totals).Methods(http.MethodGet)
	r.HandleFunc("/api/workouts/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/workouts/{id}", h.delete).Methods(http.MethodDelete)
}

type listWorkoutsResponse struct {
	Workouts []*store.Workout `json:"workouts"`
}

type totalsResponse struct {
	Totals []store.ExerciseTotal `json:"totals"`
}

// list handles GET /api/workouts?exercise=&since=&limit=.
func (h *WorkoutHandler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.WorkoutFilter{
		Exercise: query.Get("exercise"),
		Limit:    defaultWorkoutLimit,
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(limit, maxWorkoutLimit)
	}
	if raw := query.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}

	workouts, err := h.store.Workouts().List(filter)
	if err != nil {
		log.Errorf("list workouts: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list workouts")
		return
	}
	if workouts == nil {
		workouts = []*store.Workout{}
	}
	writeJSON(w, http.StatusOK, listWorkoutsResponse{Workouts: workouts})
}

// totals handles GET /api/workouts/totals.
func (h *WorkoutHandler) totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.store.Workouts().Totals()
	if err != nil {
		log.Errorf("workout totals: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute totals")
		return
	}
	if totals == nil {
		totals = []store.ExerciseTotal{}
	}
	writeJSON(w, http.StatusOK, totalsResponse{Totals: totals})
}

// get handles GET /api/workouts/{id}.
func (h *WorkoutHandler) get(w http.ResponseWriter, r *http.Request) {
	workout, err := h.store.Workouts().GetByID(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get workout")
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

// delete handles DELETE /api/workouts/{id}.
func (h *WorkoutHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Workouts().Delete(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete workout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
