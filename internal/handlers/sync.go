package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/velocoach/velocoach/internal/services/garmin"
	"github.com/velocoach/velocoach/internal/sync"
)

// SyncHandler exposes the synchronization engine over HTTP
type SyncHandler struct {
	service *sync.Service
	runner  *sync.Runner
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(service *sync.Service, runner *sync.Runner) *SyncHandler {
	return &SyncHandler{service: service, runner: runner}
}

// RegisterRoutes registers sync routes
func (sh *SyncHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/sync", sh.StartSync).Methods("POST")
	r.HandleFunc("/sync/status", sh.GetSyncStatus).Methods("GET")
}

// StartSync runs one synchronization and reports the synced count.
// Concurrent requests are rejected; the engine processes one run at a time.
func (sh *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DaysBack int `json:"days_back"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	synced, err := sh.runner.TrySync(r.Context(), req.DaysBack)
	if err != nil {
		switch {
		case errors.Is(err, sync.ErrSyncInProgress):
			respondError(w, http.StatusConflict, err.Error())
		case isAuthError(err):
			respondError(w, http.StatusUnauthorized, err.Error())
		default:
			respondError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"activities_synced": synced,
		"status":            "completed",
	})
}

// GetSyncStatus returns the most recent sync log entry
func (sh *SyncHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	entry, err := sh.service.LatestSyncStatus(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entry == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status": "never_synced",
		})
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func isAuthError(err error) bool {
	var authErr *garmin.AuthError
	return errors.As(err, &authErr)
}
