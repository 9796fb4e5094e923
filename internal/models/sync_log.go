package models

import (
	"time"
)

// SyncStatus is the lifecycle state of one synchronization run.
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusAuthFailed SyncStatus = "auth_failed"
	SyncStatusFailed     SyncStatus = "failed"
)

// Terminal reports whether the status is final. A terminal entry is never
// transitioned again.
func (s SyncStatus) Terminal() bool {
	switch s {
	case SyncStatusCompleted, SyncStatusAuthFailed, SyncStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
//
//	pending     -> in_progress
//	in_progress -> completed | auth_failed | failed
func (s SyncStatus) CanTransitionTo(next SyncStatus) bool {
	switch s {
	case SyncStatusPending:
		return next == SyncStatusInProgress
	case SyncStatusInProgress:
		return next.Terminal()
	}
	return false
}

// SyncLog records the outcome of one Garmin synchronization run.
// One row per run; only the run that created it mutates it.
type SyncLog struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID            string     `gorm:"column:run_id;type:varchar(36);index" json:"runId"`
	Status           SyncStatus `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	ActivitiesSynced int        `gorm:"column:activities_synced;default:0" json:"activitiesSynced"`
	LastSyncTime     *time.Time `gorm:"column:last_sync_time" json:"lastSyncTime"`
	ErrorMessage     string     `gorm:"column:error_message;type:text" json:"errorMessage"`
	CreatedAt        time.Time  `gorm:"column:created_at;index" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"-"`
}

// TableName specifies the table name
func (SyncLog) TableName() string {
	return "garmin_sync_log"
}
