package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/velocoach/velocoach/internal/database"
	"github.com/velocoach/velocoach/internal/sync"
)

// HealthHandler reports process and collaborator health
type HealthHandler struct {
	db      *database.DB
	service *sync.Service
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, service *sync.Service) *HealthHandler {
	return &HealthHandler{
		db:      db,
		service: service,
		started: time.Now(),
	}
}

// Check pings the database and reports the last sync outcome alongside
// basic process statistics.
func (hh *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(hh.started).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
	}

	sqlDB, err := hh.db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = err.Error()
	} else {
		body["database"] = "connected"
	}

	if entry, err := hh.service.LatestSyncStatus(r.Context()); err == nil && entry != nil {
		body["last_sync"] = map[string]interface{}{
			"status":            entry.Status,
			"activities_synced": entry.ActivitiesSynced,
			"created_at":        entry.CreatedAt,
		}
	}

	respondJSON(w, status, body)
}
