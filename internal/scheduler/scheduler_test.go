package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/orchestrator"
)

type fakeScheduleRepo struct {
	schedules []*models.Schedule
	fired     map[int64]int
	markErr   error
}

func (f *fakeScheduleRepo) List(context.Context) ([]*models.Schedule, error) {
	return f.schedules, nil
}

func (f *fakeScheduleRepo) ListActive(context.Context) ([]*models.Schedule, error) {
	var active []*models.Schedule
	for _, s := range f.schedules {
		if s.IsActive {
			active = append(active, s)
		}
	}
	return active, nil
}

func (f *fakeScheduleRepo) Get(context.Context, int64) (*models.Schedule, error) { return nil, nil }
func (f *fakeScheduleRepo) Create(_ context.Context, s *models.Schedule) (*models.Schedule, error) {
	return s, nil
}
func (f *fakeScheduleRepo) Update(_ context.Context, s *models.Schedule) (*models.Schedule, error) {
	return s, nil
}
func (f *fakeScheduleRepo) Delete(context.Context, int64) error { return nil }
func (f *fakeScheduleRepo) Toggle(context.Context, int64) (*models.Schedule, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) MarkFired(_ context.Context, id int64, firedAt time.Time, nextRun *time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	if f.fired == nil {
		f.fired = make(map[int64]int)
	}
	f.fired[id]++
	for _, s := range f.schedules {
		if s.ID == id {
			at := firedAt
			s.LastRunAt = &at
			s.NextRunAt = nextRun
		}
	}
	return nil
}

type fakeSyncTableRepo struct {
	tables  []*models.SyncTable
	touched []int64
}

func (f *fakeSyncTableRepo) List(context.Context) ([]*models.SyncTable, error) {
	return f.tables, nil
}

func (f *fakeSyncTableRepo) ListActive(context.Context) ([]*models.SyncTable, error) {
	var active []*models.SyncTable
	for _, t := range f.tables {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

func (f *fakeSyncTableRepo) Get(context.Context, int64) (*models.SyncTable, error) { return nil, nil }
func (f *fakeSyncTableRepo) Create(_ context.Context, t *models.SyncTable) (*models.SyncTable, error) {
	return t, nil
}
func (f *fakeSyncTableRepo) Update(_ context.Context, t *models.SyncTable) (*models.SyncTable, error) {
	return t, nil
}
func (f *fakeSyncTableRepo) Delete(context.Context, int64) error { return nil }
func (f *fakeSyncTableRepo) Toggle(context.Context, int64) (*models.SyncTable, error) {
	return nil, nil
}

func (f *fakeSyncTableRepo) TouchLastSynced(_ context.Context, id int64, _ time.Time) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakeSubmitter struct {
	requests []orchestrator.SubmitRequest
	failFor  map[string]error
}

func (f *fakeSubmitter) Submit(_ context.Context, req orchestrator.SubmitRequest) (*models.ExtractionJob, error) {
	if err := f.failFor[req.TableName]; err != nil {
		return nil, err
	}
	f.requests = append(f.requests, req)
	return &models.ExtractionJob{ID: "job-" + req.TableName}, nil
}

func timePtr(t time.Time) *time.Time { return &t }

func newTestScheduler(schedules *fakeScheduleRepo, tables *fakeSyncTableRepo, submitter *fakeSubmitter, now time.Time) *Scheduler {
	s := New(schedules, tables, submitter, time.Minute, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestNextRunStrictlyAfterReference(t *testing.T) {
	after := time.Date(2026, 3, 14, 9, 25, 0, 0, time.UTC)
	next, err := NextRun("*/5 * * * *", "", after)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	want := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next=%v want=%v", next, want)
	}
	if !next.After(after) {
		t.Fatal("next run must be strictly after the reference time")
	}
}

func TestNextRunTimezone(t *testing.T) {
	after := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	// Daily at 09:00 New York time (EDT, UTC-4 in March).
	next, err := NextRun("0 9 * * *", "America/New_York", after)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	want := time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next=%v want=%v", next, want)
	}
}

func TestNextRunRejectsBadExpression(t *testing.T) {
	if _, err := NextRun("not a cron", "", time.Now()); err == nil {
		t.Fatal("expected error for malformed expression")
	}
	if _, err := NextRun("* * * * *", "Mars/Olympus", time.Now()); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestTickFiresDueSchedule(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	schedules := &fakeScheduleRepo{schedules: []*models.Schedule{
		{ID: 1, Name: "hourly", ScheduleType: models.ScheduleCron, CronExpression: "0 * * * *", IsActive: true, NextRunAt: timePtr(now.Add(-time.Minute))},
	}}
	tables := &fakeSyncTableRepo{tables: []*models.SyncTable{
		{ID: 10, SourceID: 1, TableName: "events", IsActive: true, BatchSize: 1000, SyncInterval: 3600},
	}}
	submitter := &fakeSubmitter{}
	s := newTestScheduler(schedules, tables, submitter, now)

	s.Tick(context.Background())

	if schedules.fired[1] != 1 {
		t.Fatalf("fired=%d want=1", schedules.fired[1])
	}
	if len(submitter.requests) != 1 {
		t.Fatalf("submissions=%d want=1", len(submitter.requests))
	}
	req := submitter.requests[0]
	if req.TableName != "events" || req.Mode != models.PaginationPhysical {
		t.Fatalf("unexpected request %+v", req)
	}
	if len(tables.touched) != 1 || tables.touched[0] != 10 {
		t.Fatalf("touched=%v want=[10]", tables.touched)
	}
	if schedules.schedules[0].NextRunAt == nil || !schedules.schedules[0].NextRunAt.After(now) {
		t.Fatalf("next_run_at=%v, want strictly after %v", schedules.schedules[0].NextRunAt, now)
	}
}

func TestTickSkipsNotDueAndManualSchedules(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	schedules := &fakeScheduleRepo{schedules: []*models.Schedule{
		{ID: 1, ScheduleType: models.ScheduleCron, CronExpression: "0 * * * *", IsActive: true, NextRunAt: timePtr(now.Add(time.Hour))},
		{ID: 2, ScheduleType: models.ScheduleManual, IsActive: true},
		{ID: 3, ScheduleType: models.ScheduleCron, CronExpression: "0 * * * *", IsActive: true, NextRunAt: nil},
		{ID: 4, ScheduleType: models.ScheduleCron, CronExpression: "0 * * * *", IsActive: false, NextRunAt: timePtr(now.Add(-time.Minute))},
	}}
	submitter := &fakeSubmitter{}
	s := newTestScheduler(schedules, &fakeSyncTableRepo{}, submitter, now)

	s.Tick(context.Background())

	if len(schedules.fired) != 0 {
		t.Fatalf("fired=%v, want none", schedules.fired)
	}
	if len(submitter.requests) != 0 {
		t.Fatalf("submissions=%d want=0", len(submitter.requests))
	}
}

func TestSyncPassSubmitsEveryActiveTable(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	schedules := &fakeScheduleRepo{schedules: []*models.Schedule{
		{ID: 1, ScheduleType: models.ScheduleCron, CronExpression: "* * * * *", IsActive: true, NextRunAt: timePtr(now)},
	}}
	tables := &fakeSyncTableRepo{tables: []*models.SyncTable{
		{ID: 1, SourceID: 1, TableName: "never_synced", IsActive: true, SyncInterval: 3600},
		{ID: 2, SourceID: 1, TableName: "synced_long_ago", IsActive: true, SyncInterval: 3600, LastSyncedAt: timePtr(now.Add(-2 * time.Hour))},
		// A firing resyncs every active registration, last_synced_at
		// recency notwithstanding.
		{ID: 3, SourceID: 1, TableName: "synced_just_now", IsActive: true, SyncInterval: 3600, LastSyncedAt: timePtr(now.Add(-10 * time.Minute))},
		// Inactive registrations never run.
		{ID: 4, SourceID: 1, TableName: "disabled", IsActive: false, SyncInterval: 3600},
	}}
	submitter := &fakeSubmitter{}
	s := newTestScheduler(schedules, tables, submitter, now)

	s.Tick(context.Background())

	if len(submitter.requests) != 3 {
		t.Fatalf("submissions=%d want=3", len(submitter.requests))
	}
	got := map[string]bool{}
	for _, req := range submitter.requests {
		got[req.TableName] = true
	}
	if !got["never_synced"] || !got["synced_long_ago"] || !got["synced_just_now"] {
		t.Fatalf("submitted=%v, want all three active tables", got)
	}
	if got["disabled"] {
		t.Fatalf("submitted=%v, inactive table must not run", got)
	}
}

func TestSyncPassUsesColumnModeForCursorTables(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	schedules := &fakeScheduleRepo{schedules: []*models.Schedule{
		{ID: 1, ScheduleType: models.ScheduleCron, CronExpression: "* * * * *", IsActive: true, NextRunAt: timePtr(now)},
	}}
	tables := &fakeSyncTableRepo{tables: []*models.SyncTable{
		{ID: 1, SourceID: 1, TableName: "orders", IsActive: true, CursorColumn: "updated_at", BatchSize: 500, SyncInterval: 60},
	}}
	submitter := &fakeSubmitter{}
	s := newTestScheduler(schedules, tables, submitter, now)

	s.Tick(context.Background())

	if len(submitter.requests) != 1 {
		t.Fatalf("submissions=%d want=1", len(submitter.requests))
	}
	req := submitter.requests[0]
	if req.Mode != models.PaginationColumn || req.CursorColumn != "updated_at" || req.BatchSize != 500 {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestSubmitFailureDoesNotBlockOtherTables(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	schedules := &fakeScheduleRepo{schedules: []*models.Schedule{
		{ID: 1, ScheduleType: models.ScheduleCron, CronExpression: "* * * * *", IsActive: true, NextRunAt: timePtr(now)},
	}}
	tables := &fakeSyncTableRepo{tables: []*models.SyncTable{
		{ID: 1, SourceID: 1, TableName: "broken", IsActive: true, SyncInterval: 60},
		{ID: 2, SourceID: 2, TableName: "healthy", IsActive: true, SyncInterval: 60},
	}}
	submitter := &fakeSubmitter{failFor: map[string]error{"broken": errors.New("temporal unavailable")}}
	s := newTestScheduler(schedules, tables, submitter, now)

	s.Tick(context.Background())

	if len(submitter.requests) != 1 || submitter.requests[0].TableName != "healthy" {
		t.Fatalf("requests=%+v, want only healthy", submitter.requests)
	}
	// The failed table keeps its sync time so it retries next pass.
	if len(tables.touched) != 1 || tables.touched[0] != 2 {
		t.Fatalf("touched=%v want=[2]", tables.touched)
	}
	// The schedule still advanced.
	if schedules.fired[1] != 1 {
		t.Fatalf("fired=%d want=1", schedules.fired[1])
	}
}

func TestMarkFiredFailureSkipsSyncPass(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	schedules := &fakeScheduleRepo{
		schedules: []*models.Schedule{
			{ID: 1, ScheduleType: models.ScheduleCron, CronExpression: "* * * * *", IsActive: true, NextRunAt: timePtr(now)},
		},
		markErr: errors.New("db down"),
	}
	tables := &fakeSyncTableRepo{tables: []*models.SyncTable{
		{ID: 1, SourceID: 1, TableName: "events", IsActive: true, SyncInterval: 60},
	}}
	submitter := &fakeSubmitter{}
	s := newTestScheduler(schedules, tables, submitter, now)

	s.Tick(context.Background())

	if len(submitter.requests) != 0 {
		t.Fatalf("submissions=%d, want none when the firing cannot be recorded", len(submitter.requests))
	}
}
