package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/velocoach/velocoach/internal/models"
	"github.com/velocoach/velocoach/internal/services/garmin"
)

// --- fakes -----------------------------------------------------------------

type fakeAuth struct {
	err   error
	calls int
}

func (f *fakeAuth) Authenticate(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeFetcher struct {
	summaries []garmin.ActivitySummary
	listErr   error
	listCalls int

	details     map[string]garmin.ActivityDetail
	detailErrs  map[string][]error // consumed one per call before details succeed
	detailCalls map[string]int
}

func (f *fakeFetcher) ListActivities(ctx context.Context, start, end time.Time, limit int) ([]garmin.ActivitySummary, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.summaries, nil
}

func (f *fakeFetcher) GetActivityDetails(ctx context.Context, activityID string) (garmin.ActivityDetail, error) {
	if f.detailCalls == nil {
		f.detailCalls = make(map[string]int)
	}
	f.detailCalls[activityID]++
	if errs := f.detailErrs[activityID]; len(errs) > 0 {
		err := errs[0]
		f.detailErrs[activityID] = errs[1:]
		return nil, err
	}
	if detail, ok := f.details[activityID]; ok {
		return detail, nil
	}
	return garmin.ActivityDetail{}, nil
}

type memWorkouts struct {
	rows   map[string]*models.Workout
	order  []string
	nextID int64
}

func newMemWorkouts() *memWorkouts {
	return &memWorkouts{rows: make(map[string]*models.Workout)}
}

func (m *memWorkouts) Exists(ctx context.Context, garminActivityID string) (bool, error) {
	_, ok := m.rows[garminActivityID]
	return ok, nil
}

func (m *memWorkouts) Persist(ctx context.Context, workout *models.Workout) (int64, error) {
	if _, ok := m.rows[workout.GarminActivityID]; ok {
		return 0, fmt.Errorf("duplicate garmin_activity_id %s", workout.GarminActivityID)
	}
	m.nextID++
	workout.ID = m.nextID
	m.rows[workout.GarminActivityID] = workout
	m.order = append(m.order, workout.GarminActivityID)
	return workout.ID, nil
}

type memLogs struct {
	entries []*models.SyncLog
	nextID  int64
}

func (m *memLogs) Create(ctx context.Context, entry *models.SyncLog) error {
	m.nextID++
	entry.ID = m.nextID
	entry.CreatedAt = time.Now()
	clone := *entry
	m.entries = append(m.entries, &clone)
	return nil
}

func (m *memLogs) Update(ctx context.Context, entry *models.SyncLog) error {
	for i, existing := range m.entries {
		if existing.ID == entry.ID {
			clone := *entry
			clone.CreatedAt = existing.CreatedAt
			m.entries[i] = &clone
			return nil
		}
	}
	return fmt.Errorf("sync log %d not found", entry.ID)
}

func (m *memLogs) Latest(ctx context.Context) (*models.SyncLog, error) {
	if len(m.entries) == 0 {
		return nil, nil
	}
	return m.entries[len(m.entries)-1], nil
}

func (m *memLogs) FinalizeStale(ctx context.Context, message string) (int64, error) {
	var n int64
	for _, e := range m.entries {
		if !e.Status.Terminal() {
			e.Status = models.SyncStatusFailed
			e.ErrorMessage = message
			n++
		}
	}
	return n, nil
}

// --- helpers ---------------------------------------------------------------

type testEnv struct {
	service  *Service
	auth     *fakeAuth
	fetcher  *fakeFetcher
	workouts *memWorkouts
	logs     *memLogs
	sleeps   []time.Duration
}

func newTestEnv(fetcher *fakeFetcher) *testEnv {
	env := &testEnv{
		auth:     &fakeAuth{},
		fetcher:  fetcher,
		workouts: newMemWorkouts(),
		logs:     &memLogs{},
	}
	env.service = NewService(env.auth, env.fetcher, env.workouts, env.logs)
	env.service.sleep = func(ctx context.Context, d time.Duration) error {
		env.sleeps = append(env.sleeps, d)
		return nil
	}
	return env
}

func summary(id, typeKey string, extra map[string]interface{}) garmin.ActivitySummary {
	s := garmin.ActivitySummary{
		"activityId": id,
		"activityType": map[string]interface{}{
			"typeKey": typeKey,
		},
		"startTimeLocal": "2024-01-14T08:00:00",
	}
	for k, v := range extra {
		s[k] = v
	}
	return s
}

func latestStatus(t *testing.T, env *testEnv) *models.SyncLog {
	t.Helper()
	entry, err := env.service.LatestSyncStatus(context.Background())
	if err != nil {
		t.Fatalf("LatestSyncStatus failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a sync log entry, got none")
	}
	if !entry.Status.Terminal() {
		t.Errorf("log entry left in non-terminal status %q", entry.Status)
	}
	return entry
}

// --- tests -----------------------------------------------------------------

func TestSyncRecentActivities_MergesAndPersists(t *testing.T) {
	fetcher := &fakeFetcher{
		summaries: []garmin.ActivitySummary{
			summary("1001", "cycling", map[string]interface{}{
				"duration": float64(3600),
				"distance": float64(50000),
			}),
		},
		details: map[string]garmin.ActivityDetail{
			"1001": {
				"avgPower":      float64(200),
				"elevationGain": float64(500),
			},
		},
	}
	env := newTestEnv(fetcher)

	synced, err := env.service.SyncRecentActivities(context.Background(), 7)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if synced != 1 {
		t.Errorf("expected 1 synced activity, got %d", synced)
	}

	w := env.workouts.rows["1001"]
	if w == nil {
		t.Fatal("workout 1001 was not persisted")
	}
	if w.ActivityType != "cycling" {
		t.Errorf("expected activity type cycling, got %q", w.ActivityType)
	}
	if w.DurationSeconds == nil || *w.DurationSeconds != 3600 {
		t.Errorf("expected duration 3600, got %v", w.DurationSeconds)
	}
	if w.AvgPower == nil || *w.AvgPower != 200 {
		t.Errorf("expected avg power 200, got %v", w.AvgPower)
	}
	if w.ElevationGainMeters == nil || *w.ElevationGainMeters != 500 {
		t.Errorf("expected elevation gain 500, got %v", w.ElevationGainMeters)
	}
	if w.StartTime.Format("2006-01-02T15:04:05") != "2024-01-14T08:00:00" {
		t.Errorf("unexpected start time %v", w.StartTime)
	}
	if len(w.RawMetrics) == 0 {
		t.Error("raw metrics blob is empty")
	}

	entry := latestStatus(t, env)
	if entry.Status != models.SyncStatusCompleted {
		t.Errorf("expected completed, got %q", entry.Status)
	}
	if entry.ActivitiesSynced != 1 {
		t.Errorf("expected activities_synced 1, got %d", entry.ActivitiesSynced)
	}
	if entry.LastSyncTime == nil {
		t.Error("last sync time not set on completion")
	}
}

func TestSyncRecentActivities_SecondRunIsNoOp(t *testing.T) {
	fetcher := &fakeFetcher{
		summaries: []garmin.ActivitySummary{summary("1001", "cycling", nil)},
	}
	env := newTestEnv(fetcher)

	if _, err := env.service.SyncRecentActivities(context.Background(), 7); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	detailCallsAfterFirst := env.fetcher.detailCalls["1001"]

	synced, err := env.service.SyncRecentActivities(context.Background(), 7)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if synced != 0 {
		t.Errorf("expected 0 synced on unchanged upstream, got %d", synced)
	}
	if len(env.workouts.rows) != 1 {
		t.Errorf("expected 1 workout row, got %d", len(env.workouts.rows))
	}
	if env.fetcher.detailCalls["1001"] != detailCallsAfterFirst {
		t.Error("second run fetched details for an already-known activity")
	}
	if len(env.logs.entries) != 2 {
		t.Errorf("expected 2 sync log rows, got %d", len(env.logs.entries))
	}
}

func TestSyncRecentActivities_OnlyNewActivitiesCount(t *testing.T) {
	fetcher := &fakeFetcher{
		summaries: []garmin.ActivitySummary{summary("1004", "running", nil)},
	}
	env := newTestEnv(fetcher)

	if _, err := env.service.SyncRecentActivities(context.Background(), 7); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	env.fetcher.summaries = []garmin.ActivitySummary{
		summary("1004", "running", nil),
		summary("1005", "cycling", nil),
	}

	synced, err := env.service.SyncRecentActivities(context.Background(), 7)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if synced != 1 {
		t.Errorf("expected 1 new activity on second run, got %d", synced)
	}
	if len(env.workouts.rows) != 2 {
		t.Errorf("expected 2 workout rows, got %d", len(env.workouts.rows))
	}
	if len(env.logs.entries) != 2 {
		t.Errorf("expected 2 sync log rows, got %d", len(env.logs.entries))
	}
}

func TestSyncRecentActivities_ProcessesInPlatformOrder(t *testing.T) {
	fetcher := &fakeFetcher{
		summaries: []garmin.ActivitySummary{
			summary("3", "cycling", nil),
			summary("1", "cycling", nil),
			summary("2", "cycling", nil),
		},
	}
	env := newTestEnv(fetcher)

	if _, err := env.service.SyncRecentActivities(context.Background(), 7); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	want := []string{"3", "1", "2"}
	for i, id := range want {
		if env.workouts.order[i] != id {
			t.Fatalf("persist order %v, want %v", env.workouts.order, want)
		}
	}
}

func TestDetailRetry_RecoversWithinBound(t *testing.T) {
	fetcher := &fakeFetcher{
		summaries: []garmin.ActivitySummary{summary("1001", "cycling", nil)},
		detailErrs: map[string][]error{
			"1001": {
				garmin.NewAPIError("rate limited", nil),
				garmin.NewAPIError("rate limited", nil),
			},
		},
	}
	env := newTestEnv(fetcher)

	synced, err := env.service.SyncRecentActivities(context.Background(), 7)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if synced != 1 {
		t.Errorf("expected 1 synced, got %d", synced)
	}
	if calls := env.fetcher.detailCalls["1001"]; calls != 3 {
		t.Errorf("expected exactly 3 detail calls, got %d", calls)
	}
	if len(env.sleeps) != 2 || env.sleeps[0] != time.Second || env.sleeps[1] != 2*time.Second {
		t.Errorf("unexpected backoff delays %v", env.sleeps)
	}
	if entry := latestStatus(t, env); entry.Status != models.SyncStatusCompleted {
		t.Errorf("expected completed, got %q", entry.Status)
	}
}

func TestDetailRetry_ExhaustionAbortsRun(t *testing.T) {
	fetcher := &fakeFetcher{
		summaries: []garmin.ActivitySummary{summary("1001", "cycling", nil)},
		detailErrs: map[string][]error{
			"1001": {
				garmin.NewAPIError("rate limited", nil),
				garmin.NewAPIError("rate limited", nil),
				garmin.NewAPIError("rate limited", nil),
			},
		},
	}
	env := newTestEnv(fetcher)

	synced, err := env.service.SyncRecentActivities(context.Background(), 7)
	if err == nil {
		t.Fatal("expected the run to fail")
	}
	if synced != 0 {
		t.Errorf("expected 0 synced, got %d", synced)
	}
	if calls := env.fetcher.detailCalls["1001"]; calls != 3 {
		t.Errorf("expected exactly 3 detail calls, got %d", calls)
	}
	if len(env.workouts.rows) != 0 {
		t.Errorf("expected no workout rows, got %d", len(env.workouts.rows))
	}

	entry := latestStatus(t, env)
	if entry.Status != models.SyncStatusFailed {
		t.Errorf("expected failed, got %q", entry.Status)
	}
	if !strings.Contains(entry.ErrorMessage, "rate limited") {
		t.Errorf("error message %q does not carry the underlying cause", entry.ErrorMessage)
	}
}

func TestDetailRetry_AuthErrorRecordsAuthFailed(t *testing.T) {
	fetcher := &fakeFetcher{
		summaries: []garmin.ActivitySummary{summary("1001", "cycling", nil)},
		detailErrs: map[string][]error{
			"1001": {
				&garmin.AuthError{Message: "session rejected"},
				&garmin.AuthError{Message: "session rejected"},
				&garmin.AuthError{Message: "session rejected"},
			},
		},
	}
	env := newTestEnv(fetcher)

	_, err := env.service.SyncRecentActivities(context.Background(), 7)
	var authErr *garmin.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if entry := latestStatus(t, env); entry.Status != models.SyncStatusAuthFailed {
		t.Errorf("expected auth_failed, got %q", entry.Status)
	}
}

func TestAuthFailure_RecordedBeforeReturn(t *testing.T) {
	env := newTestEnv(&fakeFetcher{})
	env.auth.err = &garmin.AuthError{Message: "credentials not configured"}

	_, err := env.service.SyncRecentActivities(context.Background(), 7)
	var authErr *garmin.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if env.fetcher.listCalls != 0 {
		t.Error("activity list was fetched despite auth failure")
	}

	entry := latestStatus(t, env)
	if entry.Status != models.SyncStatusAuthFailed {
		t.Errorf("expected auth_failed, got %q", entry.Status)
	}
	if !strings.Contains(entry.ErrorMessage, "credentials not configured") {
		t.Errorf("error message %q does not carry the auth failure text", entry.ErrorMessage)
	}
}

func TestListFailure_RecordsFailed(t *testing.T) {
	env := newTestEnv(&fakeFetcher{listErr: garmin.NewAPIError("connection reset", nil)})

	_, err := env.service.SyncRecentActivities(context.Background(), 7)
	if err == nil {
		t.Fatal("expected the run to fail")
	}

	entry := latestStatus(t, env)
	if entry.Status != models.SyncStatusFailed {
		t.Errorf("expected failed, got %q", entry.Status)
	}
	if !strings.Contains(entry.ErrorMessage, "connection reset") {
		t.Errorf("error message %q does not carry the underlying cause", entry.ErrorMessage)
	}
}

func TestSyncRecentActivities_EmptyUpstream(t *testing.T) {
	env := newTestEnv(&fakeFetcher{summaries: []garmin.ActivitySummary{}})

	synced, err := env.service.SyncRecentActivities(context.Background(), 7)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if synced != 0 {
		t.Errorf("expected 0 synced, got %d", synced)
	}
	if entry := latestStatus(t, env); entry.Status != models.SyncStatusCompleted {
		t.Errorf("expected completed, got %q", entry.Status)
	}
}

func TestSyncRecentActivities_MissingActivityIDFailsRun(t *testing.T) {
	env := newTestEnv(&fakeFetcher{
		summaries: []garmin.ActivitySummary{{"startTimeLocal": "2024-01-14T08:00:00"}},
	})

	if _, err := env.service.SyncRecentActivities(context.Background(), 7); err == nil {
		t.Fatal("expected the run to fail on a payload without activityId")
	}
	if entry := latestStatus(t, env); entry.Status != models.SyncStatusFailed {
		t.Errorf("expected failed, got %q", entry.Status)
	}
}

func TestLatestSyncStatus_NoRuns(t *testing.T) {
	env := newTestEnv(&fakeFetcher{})
	entry, err := env.service.LatestSyncStatus(context.Background())
	if err != nil {
		t.Fatalf("LatestSyncStatus failed: %v", err)
	}
	if entry != nil {
		t.Errorf("expected nil before any run, got %+v", entry)
	}
}

func TestReconcileStaleRuns(t *testing.T) {
	env := newTestEnv(&fakeFetcher{})
	stale := &models.SyncLog{RunID: "stale", Status: models.SyncStatusInProgress}
	if err := env.logs.Create(context.Background(), stale); err != nil {
		t.Fatalf("seeding stale entry failed: %v", err)
	}

	if err := env.service.ReconcileStaleRuns(context.Background()); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	entry := latestStatus(t, env)
	if entry.Status != models.SyncStatusFailed {
		t.Errorf("expected interrupted run marked failed, got %q", entry.Status)
	}
	if !strings.Contains(entry.ErrorMessage, "interrupted") {
		t.Errorf("expected interrupted message, got %q", entry.ErrorMessage)
	}
}
