package sync

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"
)

// ErrSyncInProgress is returned when a sync run is requested while another
// run is still active. The engine processes one run at a time.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// Runner serializes sync runs and optionally drives a periodic background
// loop. The orchestrator itself provides no mutual exclusion, so every caller
// goes through the runner.
type Runner struct {
	service  *Service
	daysBack int
	interval time.Duration

	active atomic.Bool
	stop   chan struct{}
}

// NewRunner creates a runner; interval 0 disables the background loop
func NewRunner(service *Service, daysBack int, interval time.Duration) *Runner {
	return &Runner{
		service:  service,
		daysBack: daysBack,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// TrySync performs one sync run unless another run is already active
func (r *Runner) TrySync(ctx context.Context, daysBack int) (int, error) {
	if !r.active.CompareAndSwap(false, true) {
		return 0, ErrSyncInProgress
	}
	defer r.active.Store(false)

	if daysBack <= 0 {
		daysBack = r.daysBack
	}
	return r.service.SyncRecentActivities(ctx, daysBack)
}

// Start begins the periodic background synchronization loop
func (r *Runner) Start() {
	if r.interval <= 0 {
		log.Println("Garmin sync loop disabled: no interval configured")
		return
	}

	go func() {
		log.Printf("📡 Garmin sync loop started (every %s)", r.interval)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := r.TrySync(context.Background(), r.daysBack); err != nil && !errors.Is(err, ErrSyncInProgress) {
					log.Printf("❌ Garmin: background sync failed: %v", err)
				}
			case <-r.stop:
				log.Println("🛑 Garmin sync loop stopped")
				return
			}
		}
	}()
}

// Stop halts the background loop
func (r *Runner) Stop() {
	close(r.stop)
}
