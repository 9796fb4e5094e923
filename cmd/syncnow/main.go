// Command syncnow performs a single Garmin synchronization run and prints the
// outcome. Useful from cron or for manual imports without the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/velocoach/velocoach/internal/config"
	"github.com/velocoach/velocoach/internal/database"
	"github.com/velocoach/velocoach/internal/models"
	"github.com/velocoach/velocoach/internal/services/garmin"
	"github.com/velocoach/velocoach/internal/sync"
)

func main() {
	daysBack := flag.Int("days", 0, "how many days back to sync (default: SYNC_DAYS_BACK)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.Workout{}, &models.SyncLog{}); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	client := garmin.NewClient(cfg.Garmin.BaseURL)
	sessions := garmin.NewSessionStore(cfg.Garmin.SessionDir)
	auth := garmin.NewSessionManager(client, sessions, cfg.Garmin.Username, cfg.Garmin.Password)

	service := sync.NewService(
		auth,
		client,
		sync.NewGormWorkoutStore(db),
		sync.NewGormSyncLogStore(db),
	)

	ctx := context.Background()
	if err := service.ReconcileStaleRuns(ctx); err != nil {
		log.Printf("⚠️ Could not reconcile interrupted sync runs: %v", err)
	}

	days := *daysBack
	if days <= 0 {
		days = cfg.Sync.DaysBack
	}

	synced, err := service.SyncRecentActivities(ctx, days)
	if err != nil {
		log.Fatalf("Sync failed after %d activities: %v", synced, err)
	}

	fmt.Printf("Synced %d new activities\n", synced)
}
