package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron"
	"github.com/rs/zerolog"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/orchestrator"
	"github.com/driftsync/driftsync-api/internal/repository"
)

// Submitter starts extraction jobs. Satisfied by the orchestrator.
type Submitter interface {
	Submit(ctx context.Context, req orchestrator.SubmitRequest) (*models.ExtractionJob, error)
}

// Scheduler is the singleton loop that fires cron schedules and submits one
// extraction job per due sync table registration. Failures are isolated per
// schedule and per table; one bad unit never stalls the tick.
type Scheduler struct {
	schedules repository.ScheduleRepository
	tables    repository.SyncTableRepository
	submitter Submitter
	interval  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func New(schedules repository.ScheduleRepository, tables repository.SyncTableRepository, submitter Submitter, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		tables:    tables,
		submitter: submitter,
		interval:  interval,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		now:       time.Now,
	}
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("Scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates every active schedule once against the current time.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().UTC()

	schedules, err := s.schedules.ListActive(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list schedules")
		return
	}

	for _, schedule := range schedules {
		if !due(schedule, now) {
			continue
		}
		if err := s.fire(ctx, schedule, now); err != nil {
			s.logger.Error().Err(err).Int64("schedule_id", schedule.ID).Str("schedule", schedule.Name).Msg("schedule firing failed")
		}
	}
}

func due(schedule *models.Schedule, now time.Time) bool {
	if schedule.ScheduleType != models.ScheduleCron {
		return false
	}
	if schedule.NextRunAt == nil {
		return false
	}
	return !schedule.NextRunAt.After(now)
}

// fire recomputes the schedule's next firing time exactly once, then runs
// the sync pass. The next_run_at update lands even when every table in the
// pass fails, so a broken source cannot wedge the schedule in the past.
func (s *Scheduler) fire(ctx context.Context, schedule *models.Schedule, now time.Time) error {
	next, err := NextRun(schedule.CronExpression, schedule.Timezone, now)
	if err != nil {
		return errors.Wrapf(err, "invalid cron expression %q", schedule.CronExpression)
	}
	if err := s.schedules.MarkFired(ctx, schedule.ID, now, &next); err != nil {
		return errors.Wrap(err, "failed to record firing")
	}

	s.logger.Info().
		Int64("schedule_id", schedule.ID).
		Str("schedule", schedule.Name).
		Time("next_run", next).
		Msg("Schedule fired")

	s.runSyncPass(ctx)
	return nil
}

// runSyncPass submits one extraction job per active registration. Tables of
// the same source are walked together so source-level log output stays
// grouped.
func (s *Scheduler) runSyncPass(ctx context.Context) {
	tables, err := s.tables.ListActive(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list sync tables")
		return
	}

	bySource := make(map[int64][]*models.SyncTable)
	var order []int64
	for _, table := range tables {
		if _, seen := bySource[table.SourceID]; !seen {
			order = append(order, table.SourceID)
		}
		bySource[table.SourceID] = append(bySource[table.SourceID], table)
	}

	for _, sourceID := range order {
		for _, table := range bySource[sourceID] {
			if err := s.submitTable(ctx, table); err != nil {
				s.logger.Error().Err(err).
					Int64("source_id", table.SourceID).
					Str("table", table.TableName).
					Msg("failed to submit extraction")
			}
		}
	}
}

func (s *Scheduler) submitTable(ctx context.Context, table *models.SyncTable) error {
	mode := models.PaginationPhysical
	if table.CursorColumn != "" {
		mode = models.PaginationColumn
	}

	job, err := s.submitter.Submit(ctx, orchestrator.SubmitRequest{
		SourceID:     table.SourceID,
		TableName:    table.TableName,
		Mode:         mode,
		CursorColumn: table.CursorColumn,
		BatchSize:    table.BatchSize,
	})
	if err != nil {
		return err
	}

	if err := s.tables.TouchLastSynced(ctx, table.ID, s.now().UTC()); err != nil {
		s.logger.Warn().Err(err).Int64("sync_table_id", table.ID).Msg("failed to record sync time")
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Int64("source_id", table.SourceID).
		Str("table", table.TableName).
		Str("mode", string(mode)).
		Msg("Scheduled extraction submitted")
	return nil
}

// NextRun evaluates a 5-field cron expression in the given timezone and
// returns the earliest firing time strictly after the reference time.
func NextRun(expr, timezone string, after time.Time) (time.Time, error) {
	spec, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, err
	}
	loc := time.UTC
	if timezone != "" {
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "invalid timezone %q", timezone)
		}
	}
	return spec.Next(after.In(loc)).UTC(), nil
}
