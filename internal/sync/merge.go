package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/velocoach/velocoach/internal/models"
	"github.com/velocoach/velocoach/internal/services/garmin"
)

// startTimeLayouts covers the local-time formats Garmin sends in
// startTimeLocal across API generations.
var startTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.0",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// MergeActivity combines a list summary with the detail payload for the same
// activity. Detail fields win on key collision; the summary only fills gaps.
func MergeActivity(summary garmin.ActivitySummary, detail garmin.ActivityDetail) map[string]interface{} {
	merged := make(map[string]interface{}, len(summary)+len(detail))
	for k, v := range summary {
		merged[k] = v
	}
	for k, v := range detail {
		merged[k] = v
	}
	return merged
}

// BuildWorkout maps a merged Garmin payload onto the canonical workout record.
// The mapping from external field names is fixed; everything else survives
// only inside RawMetrics, which keeps the full merged payload for downstream
// consumers.
func BuildWorkout(summary garmin.ActivitySummary, detail garmin.ActivityDetail) (*models.Workout, error) {
	merged := MergeActivity(summary, detail)

	externalID := garmin.ActivitySummary(merged).ActivityID()
	if externalID == "" {
		return nil, fmt.Errorf("activity payload has no activityId")
	}

	startTime, err := parseStartTime(merged)
	if err != nil {
		return nil, fmt.Errorf("activity %s: %w", externalID, err)
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("activity %s: failed to encode raw metrics: %w", externalID, err)
	}

	return &models.Workout{
		GarminActivityID:    externalID,
		ActivityType:        activityTypeKey(merged),
		StartTime:           startTime,
		DurationSeconds:     intField(merged, "duration"),
		DistanceMeters:      floatField(merged, "distance"),
		AvgHeartRate:        intField(merged, "averageHR"),
		MaxHeartRate:        intField(merged, "maxHR"),
		AvgPower:            floatField(merged, "avgPower"),
		MaxPower:            floatField(merged, "maxPower"),
		AvgCadence:          floatField(merged, "averageBikingCadenceInRevPerMinute"),
		ElevationGainMeters: floatField(merged, "elevationGain"),
		RawMetrics:          datatypes.JSON(raw),
	}, nil
}

// activityTypeKey digs the category out of Garmin's nested activityType
// object; unknown stays empty.
func activityTypeKey(merged map[string]interface{}) string {
	if at, ok := merged["activityType"].(map[string]interface{}); ok {
		if key, ok := at["typeKey"].(string); ok {
			return key
		}
	}
	if key, ok := merged["activityType"].(string); ok {
		return key
	}
	return ""
}

func parseStartTime(merged map[string]interface{}) (time.Time, error) {
	value, ok := merged["startTimeLocal"].(string)
	if !ok || value == "" {
		return time.Time{}, fmt.Errorf("payload has no startTimeLocal")
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable startTimeLocal %q", value)
}

// floatField extracts a numeric payload field, nil when absent or non-numeric
func floatField(merged map[string]interface{}, key string) *float64 {
	switch v := merged[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return &f
		}
	}
	return nil
}

// intField extracts a numeric payload field truncated to an integer
func intField(merged map[string]interface{}, key string) *int {
	if f := floatField(merged, key); f != nil {
		i := int(*f)
		return &i
	}
	return nil
}
