package models

import (
	"time"

	"gorm.io/datatypes"
)

// Workout is the canonical, deduplicated record of one exercise session
// imported from Garmin Connect. Rows are immutable once created; re-syncing
// the same activity never rewrites an existing row.
type Workout struct {
	ID                  int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	GarminActivityID    string         `gorm:"column:garmin_activity_id;type:varchar(255);uniqueIndex;not null" json:"garminActivityId"`
	ActivityType        string         `gorm:"column:activity_type;type:varchar(50)" json:"activityType"`
	StartTime           time.Time      `gorm:"column:start_time;not null;index" json:"startTime"`
	DurationSeconds     *int           `gorm:"column:duration_seconds" json:"durationSeconds"`
	DistanceMeters      *float64       `gorm:"column:distance_m" json:"distanceMeters"`
	AvgHeartRate        *int           `gorm:"column:avg_hr" json:"avgHeartRate"`
	MaxHeartRate        *int           `gorm:"column:max_hr" json:"maxHeartRate"`
	AvgPower            *float64       `gorm:"column:avg_power" json:"avgPower"`
	MaxPower            *float64       `gorm:"column:max_power" json:"maxPower"`
	AvgCadence          *float64       `gorm:"column:avg_cadence" json:"avgCadence"`
	ElevationGainMeters *float64       `gorm:"column:elevation_gain_m" json:"elevationGainMeters"`
	RawMetrics          datatypes.JSON `gorm:"column:metrics;type:jsonb" json:"rawMetrics"` // Full merged Garmin payload
	CreatedAt           time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt           time.Time      `gorm:"column:updated_at" json:"-"`
}

// TableName specifies the table name
func (Workout) TableName() string {
	return "workouts"
}
