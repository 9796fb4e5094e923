package sync

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/velocoach/velocoach/internal/database"
	"github.com/velocoach/velocoach/internal/models"
)

// GormWorkoutStore is the Postgres-backed workout collaborator
type GormWorkoutStore struct {
	db *database.DB
}

// NewGormWorkoutStore creates a workout store on the given database
func NewGormWorkoutStore(db *database.DB) *GormWorkoutStore {
	return &GormWorkoutStore{db: db}
}

// Exists reports whether a workout with the given Garmin activity id exists
func (s *GormWorkoutStore) Exists(ctx context.Context, garminActivityID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Workout{}).
		Where("garmin_activity_id = ?", garminActivityID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Persist creates the workout row and returns its surrogate key. The unique
// index on garmin_activity_id backs the engine's no-duplicates invariant.
func (s *GormWorkoutStore) Persist(ctx context.Context, workout *models.Workout) (int64, error) {
	if err := s.db.WithContext(ctx).Create(workout).Error; err != nil {
		return 0, err
	}
	return workout.ID, nil
}

// ListRecent returns workouts ordered by start time, newest first
func (s *GormWorkoutStore) ListRecent(ctx context.Context, limit int) ([]models.Workout, error) {
	workouts := make([]models.Workout, 0, limit)
	q := s.db.WithContext(ctx).Order("start_time DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&workouts).Error; err != nil {
		return nil, err
	}
	return workouts, nil
}

// Get fetches one workout by its local id, nil when absent
func (s *GormWorkoutStore) Get(ctx context.Context, id int64) (*models.Workout, error) {
	var workout models.Workout
	err := s.db.WithContext(ctx).First(&workout, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &workout, nil
}

// GormSyncLogStore is the Postgres-backed sync log collaborator
type GormSyncLogStore struct {
	db *database.DB
}

// NewGormSyncLogStore creates a sync log store on the given database
func NewGormSyncLogStore(db *database.DB) *GormSyncLogStore {
	return &GormSyncLogStore{db: db}
}

// Create inserts a new log entry and fills in its generated id
func (s *GormSyncLogStore) Create(ctx context.Context, entry *models.SyncLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// Update persists the entry's current status, count and error message
func (s *GormSyncLogStore) Update(ctx context.Context, entry *models.SyncLog) error {
	return s.db.WithContext(ctx).
		Model(&models.SyncLog{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"status":            entry.Status,
			"activities_synced": entry.ActivitiesSynced,
			"last_sync_time":    entry.LastSyncTime,
			"error_message":     entry.ErrorMessage,
		}).Error
}

// Latest returns the most recently created entry, nil when none exists
func (s *GormSyncLogStore) Latest(ctx context.Context) (*models.SyncLog, error) {
	var entry models.SyncLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FinalizeStale marks entries stuck in a non-terminal status as failed and
// returns how many rows were reconciled.
func (s *GormSyncLogStore) FinalizeStale(ctx context.Context, message string) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.SyncLog{}).
		Where("status IN ?", []models.SyncStatus{models.SyncStatusPending, models.SyncStatusInProgress}).
		Updates(map[string]interface{}{
			"status":        models.SyncStatusFailed,
			"error_message": message,
		})
	return result.RowsAffected, result.Error
}
