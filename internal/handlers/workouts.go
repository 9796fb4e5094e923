package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/velocoach/velocoach/internal/sync"
)

const defaultWorkoutLimit = 50

// WorkoutHandler exposes persisted workouts over HTTP
type WorkoutHandler struct {
	store *sync.GormWorkoutStore
}

// NewWorkoutHandler creates a new workout handler
func NewWorkoutHandler(store *sync.GormWorkoutStore) *WorkoutHandler {
	return &WorkoutHandler{store: store}
}

// RegisterRoutes registers workout routes
func (wh *WorkoutHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/workouts", wh.ListWorkouts).Methods("GET")
	r.HandleFunc("/workouts/{id:[0-9]+}", wh.GetWorkout).Methods("GET")
}

// ListWorkouts returns workouts ordered by start time, newest first
func (wh *WorkoutHandler) ListWorkouts(w http.ResponseWriter, r *http.Request) {
	limit := defaultWorkoutLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	workouts, err := wh.store.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(workouts),
		"workouts": workouts,
	})
}

// GetWorkout returns a single workout by its local id
func (wh *WorkoutHandler) GetWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid workout id")
		return
	}

	workout, err := wh.store.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if workout == nil {
		respondError(w, http.StatusNotFound, "workout not found")
		return
	}
	respondJSON(w, http.StatusOK, workout)
}
