package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/velocoach/velocoach/internal/database"
	"github.com/velocoach/velocoach/internal/middleware"
	"github.com/velocoach/velocoach/internal/sync"
)

// Router wraps the mux router and wires all endpoints
type Router struct {
	*mux.Router
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, service *sync.Service, runner *sync.Runner, apiKey string) *Router {
	r := &Router{
		Router: mux.NewRouter(),
	}

	// Health check endpoint (unauthenticated, used by process supervisors)
	health := NewHealthHandler(db, service)
	r.HandleFunc("/health", health.Check).Methods("GET")

	// API routes (API-key protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.APIKey(apiKey))

	syncHandler := NewSyncHandler(service, runner)
	syncHandler.RegisterRoutes(api)

	workoutHandler := NewWorkoutHandler(sync.NewGormWorkoutStore(db))
	workoutHandler.RegisterRoutes(api)

	return r
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
