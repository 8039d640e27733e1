package api

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/store"
)

// SettingsHandler reads and updates stored settings.
type SettingsHandler struct {
	store   *store.Store
	catalog *repcount.Catalog
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(s *store.Store, catalog *repcount.Catalog) *SettingsHandler {
	return &SettingsHandler{store: s, catalog: catalog}
}

// Routes registers the settings endpoints on r.
func (h *SettingsHandler) Routes(r *mux.Router) {
	r.HandleFunc("/api/settings", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/settings", h.put).Methods(http.MethodPut)
}

// get handles GET /api/settings.
func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Settings().All()
	if err != nil {
		log.Errorf("read settings: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// put handles PUT /api/settings with a partial key/value object.
func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if id, ok := req[store.SettingDefaultExercise]; ok {
		if _, err := h.catalog.Lookup(id); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	repo := h.store.Settings()
	for key, value := range req {
		if key == "" {
			writeError(w, http.StatusBadRequest, "setting key is required")
			return
		}
		if err := repo.Set(key, value); err != nil {
			log.Errorf("save setting %s: %v", key, err)
			writeError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
	}

	h.get(w, r)
}
