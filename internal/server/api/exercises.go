package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/store"
)

// ExerciseHandler serves the exercise catalog. Custom exercises are also
// written to the store when one is configured.
type ExerciseHandler struct {
	catalog *repcount.Catalog
	store   *store.Store
}

// NewExerciseHandler creates an ExerciseHandler. s may be nil.
func NewExerciseHandler(catalog *repcount.Catalog, s *store.Store) *ExerciseHandler {
	return &ExerciseHandler{catalog: catalog, store: s}
}

// Routes registers the exercise endpoints on r.
func (h *ExerciseHandler) Routes(r *mux.Router) {
	r.HandleFunc("/api/exercises", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/exercises", h.create).Methods(http.MethodPost)
	r.HandleFunc("/api/exercises/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/exercises/{id}", h.delete).Methods(http.MethodDelete)
}

type exerciseResponse struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	TargetReps    int           `json:"target_reps"`
	MinVisibility float64       `json:"min_visibility,omitempty"`
	Builtin       bool          `json:"builtin"`
	Rule          repcount.Rule `json:"rule"`
}

type listExercisesResponse struct {
	Exercises []exerciseResponse `json:"exercises"`
}

func toExerciseResponse(ex *repcount.Exercise) exerciseResponse {
	return exerciseResponse{
		ID:            ex.ID,
		Name:          ex.Name,
		Description:   ex.Description,
		TargetReps:    ex.TargetReps,
		MinVisibility: ex.MinVisibility,
		Builtin:       ex.Builtin,
		Rule:          ex.Rule,
	}
}

// list handles GET /api/exercises.
func (h *ExerciseHandler) list(w http.ResponseWriter, r *http.Request) {
	exercises := h.catalog.List()
	response := listExercisesResponse{Exercises: make([]exerciseResponse, 0, len(exercises))}
	for _, ex := range exercises {
		response.Exercises = append(response.Exercises, toExerciseResponse(ex))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/exercises/{id}.
func (h *ExerciseHandler) get(w http.ResponseWriter, r *http.Request) {
	ex, err := h.catalog.Lookup(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toExerciseResponse(ex))
}

// create handles POST /api/exercises with an angle-rule definition.
func (h *ExerciseHandler) create(w http.ResponseWriter, r *http.Request) {
	var def repcount.Definition
	if err := decodeBody(w, r, &def); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	ex, err := def.Exercise()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalog.Register(ex); err != nil {
		if errors.Is(err, repcount.ErrDuplicateExercise) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.store != nil {
		if err := h.store.Exercises().Create(def); err != nil {
			// keep catalog and store in step
			_ = h.catalog.Remove(ex.ID)
			log.Errorf("store exercise %s: %v", ex.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to save exercise")
			return
		}
	}

	log.WithField("exercise", ex.ID).Info("custom exercise registered")
	writeJSON(w, http.StatusCreated, toExerciseResponse(ex))
}

// delete handles DELETE /api/exercises/{id}. Built-in exercises are
// protected.
func (h *ExerciseHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.catalog.Remove(id); err != nil {
		switch {
		case errors.Is(err, repcount.ErrUnknownExercise):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, repcount.ErrBuiltinExercise):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Failed to delete exercise")
		}
		return
	}

	if h.store != nil {
		if err := h.store.Exercises().Delete(id); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Errorf("delete stored exercise %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Failed to delete exercise")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
