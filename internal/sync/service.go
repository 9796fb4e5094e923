package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/velocoach/velocoach/internal/models"
	"github.com/velocoach/velocoach/internal/services/garmin"
)

const listLimit = 50

// Authenticator establishes a platform session before fetching
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// ActivityFetcher is the platform surface the engine consumes
type ActivityFetcher interface {
	ListActivities(ctx context.Context, start, end time.Time, limit int) ([]garmin.ActivitySummary, error)
	GetActivityDetails(ctx context.Context, activityID string) (garmin.ActivityDetail, error)
}

// WorkoutStore persists canonical workout records
type WorkoutStore interface {
	Exists(ctx context.Context, garminActivityID string) (bool, error)
	Persist(ctx context.Context, workout *models.Workout) (int64, error)
}

// SyncLogStore persists the outcome of each synchronization run
type SyncLogStore interface {
	Create(ctx context.Context, entry *models.SyncLog) error
	Update(ctx context.Context, entry *models.SyncLog) error
	Latest(ctx context.Context) (*models.SyncLog, error)
	FinalizeStale(ctx context.Context, message string) (int64, error)
}

// Service orchestrates one synchronization run: open a log entry,
// authenticate, list candidates, skip known activities, fetch details with
// bounded retry, merge, persist, finalize the log with a terminal status.
type Service struct {
	auth     Authenticator
	fetcher  ActivityFetcher
	workouts WorkoutStore
	logs     SyncLogStore

	backoff BackoffPolicy
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
}

// NewService creates a sync service with the production backoff policy
func NewService(auth Authenticator, fetcher ActivityFetcher, workouts WorkoutStore, logs SyncLogStore) *Service {
	return &Service{
		auth:     auth,
		fetcher:  fetcher,
		workouts: workouts,
		logs:     logs,
		backoff:  DefaultBackoff(),
		sleep:    sleepContext,
		now:      time.Now,
	}
}

// SyncRecentActivities imports activities from the last daysBack days and
// returns the number of newly created workout records. Every run finishes
// with its log entry in a terminal status before the error (if any) is
// returned: auth failures as auth_failed, everything else as failed.
func (s *Service) SyncRecentActivities(ctx context.Context, daysBack int) (int, error) {
	entry := &models.SyncLog{
		RunID:  uuid.NewString(),
		Status: models.SyncStatusInProgress,
	}
	// Persist immediately so a crash mid-run leaves discoverable evidence.
	if err := s.logs.Create(ctx, entry); err != nil {
		return 0, fmt.Errorf("failed to open sync log entry: %w", err)
	}

	log.Printf("🔄 Garmin: starting sync run %s (last %d days)", entry.RunID, daysBack)

	synced, err := s.run(ctx, daysBack)
	if err != nil {
		s.finalize(ctx, entry, statusFor(err), synced, err)
		log.Printf("❌ Garmin: sync run %s failed after %d activities: %v", entry.RunID, synced, err)
		return synced, err
	}

	s.finalize(ctx, entry, models.SyncStatusCompleted, synced, nil)
	log.Printf("✅ Garmin: sync run %s completed, %d new activities", entry.RunID, synced)
	return synced, nil
}

func (s *Service) run(ctx context.Context, daysBack int) (int, error) {
	now := s.now()
	start := now.AddDate(0, 0, -daysBack)

	if err := s.auth.Authenticate(ctx); err != nil {
		return 0, err
	}

	activities, err := s.fetcher.ListActivities(ctx, start, now, listLimit)
	if err != nil {
		return 0, err
	}
	log.Printf("Garmin: platform returned %d activities", len(activities))

	synced := 0
	for _, activity := range activities {
		activityID := activity.ActivityID()
		if activityID == "" {
			return synced, fmt.Errorf("activity payload has no activityId")
		}

		// Dedup before the expensive detail fetch.
		exists, err := s.workouts.Exists(ctx, activityID)
		if err != nil {
			return synced, err
		}
		if exists {
			continue
		}

		detail, err := s.fetchDetailsWithRetry(ctx, activityID)
		if err != nil {
			// A persistent per-activity failure aborts the whole run rather
			// than producing a silently short sync.
			return synced, err
		}

		workout, err := BuildWorkout(activity, detail)
		if err != nil {
			return synced, err
		}

		if _, err := s.workouts.Persist(ctx, workout); err != nil {
			return synced, err
		}
		synced++
	}

	return synced, nil
}

// fetchDetailsWithRetry fetches one activity's details, retrying AuthError
// and APIError with exponential backoff up to the policy's attempt bound.
func (s *Service) fetchDetailsWithRetry(ctx context.Context, activityID string) (garmin.ActivityDetail, error) {
	var lastErr error
	for attempt := 0; attempt < s.backoff.MaxAttempts; attempt++ {
		detail, err := s.fetcher.GetActivityDetails(ctx, activityID)
		if err == nil {
			return detail, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		if attempt == s.backoff.MaxAttempts-1 {
			break
		}
		delay := s.backoff.Delay(attempt)
		log.Printf("⚠️  Garmin: details for %s failed (attempt %d/%d), retrying in %s: %v",
			activityID, attempt+1, s.backoff.MaxAttempts, delay, err)
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func retryable(err error) bool {
	var apiErr *garmin.APIError
	var authErr *garmin.AuthError
	return errors.As(err, &apiErr) || errors.As(err, &authErr)
}

// statusFor maps an error to the terminal log status it must be recorded as
func statusFor(err error) models.SyncStatus {
	var authErr *garmin.AuthError
	if errors.As(err, &authErr) {
		return models.SyncStatusAuthFailed
	}
	return models.SyncStatusFailed
}

// finalize durably records the terminal status on the run's log entry. It
// runs even when ctx is already cancelled: the log must tell the truth before
// the error reaches the caller.
func (s *Service) finalize(ctx context.Context, entry *models.SyncLog, status models.SyncStatus, synced int, runErr error) {
	if !entry.Status.CanTransitionTo(status) {
		log.Printf("⚠️  Garmin: refusing sync log transition %s -> %s for run %s", entry.Status, status, entry.RunID)
		return
	}

	entry.Status = status
	entry.ActivitiesSynced = synced
	if runErr != nil {
		entry.ErrorMessage = runErr.Error()
	}
	if status == models.SyncStatusCompleted {
		now := s.now()
		entry.LastSyncTime = &now
	}

	if err := s.logs.Update(context.WithoutCancel(ctx), entry); err != nil {
		log.Printf("❌ Garmin: failed to record sync outcome for run %s: %v", entry.RunID, err)
	}
}

// LatestSyncStatus returns the most recently created sync log entry, or nil
// when no sync has ever run.
func (s *Service) LatestSyncStatus(ctx context.Context) (*models.SyncLog, error) {
	return s.logs.Latest(ctx)
}

// ActivityExists reports whether a workout with the given platform id exists
func (s *Service) ActivityExists(ctx context.Context, garminActivityID string) (bool, error) {
	return s.workouts.Exists(ctx, garminActivityID)
}

// ReconcileStaleRuns finalizes log entries a crashed process left behind in a
// non-terminal status, marking them failed so the status query never reports
// a phantom in-progress run.
func (s *Service) ReconcileStaleRuns(ctx context.Context) error {
	n, err := s.logs.FinalizeStale(ctx, "interrupted: process exited before the run finished")
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("🧹 Garmin: finalized %d interrupted sync run(s) from a previous process", n)
	}
	return nil
}
