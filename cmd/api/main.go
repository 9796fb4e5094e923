package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velocoach/velocoach/internal/config"
	"github.com/velocoach/velocoach/internal/database"
	"github.com/velocoach/velocoach/internal/handlers"
	"github.com/velocoach/velocoach/internal/models"
	"github.com/velocoach/velocoach/internal/services/garmin"
	"github.com/velocoach/velocoach/internal/sync"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (detects embedded vs external automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 3. Synchronize schema
	log.Println("🚀 Synchronizing database schema...")
	if err := db.AutoMigrate(
		&models.Workout{},
		&models.SyncLog{},
	); err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Wire the sync engine
	client := garmin.NewClient(cfg.Garmin.BaseURL)
	sessions := garmin.NewSessionStore(cfg.Garmin.SessionDir)
	auth := garmin.NewSessionManager(client, sessions, cfg.Garmin.Username, cfg.Garmin.Password)

	service := sync.NewService(
		auth,
		client,
		sync.NewGormWorkoutStore(db),
		sync.NewGormSyncLogStore(db),
	)

	// Finalize any runs a previous process left in progress
	if err := service.ReconcileStaleRuns(context.Background()); err != nil {
		log.Printf("⚠️ Could not reconcile interrupted sync runs: %v", err)
	}

	runner := sync.NewRunner(service, cfg.Sync.DaysBack, time.Duration(cfg.Sync.IntervalMinutes)*time.Minute)
	runner.Start()

	// 5. Set up HTTP router
	router := handlers.NewRouter(db, service, runner, cfg.APIKey)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // a sync run may block the response
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 velocoach API listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// 6. Graceful shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownCh

	log.Println("🛑 Shutting down...")
	runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
}
