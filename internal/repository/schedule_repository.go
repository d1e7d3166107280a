package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/driftsync/driftsync-api/internal/models"
)

type ScheduleRepository interface {
	List(ctx context.Context) ([]*models.Schedule, error)
	ListActive(ctx context.Context) ([]*models.Schedule, error)
	Get(ctx context.Context, id int64) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error)
	Update(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error)
	Delete(ctx context.Context, id int64) error
	Toggle(ctx context.Context, id int64) (*models.Schedule, error)
	// MarkFired records a firing and the recomputed next firing time in
	// a single statement.
	MarkFired(ctx context.Context, id int64, firedAt time.Time, nextRun *time.Time) error
}

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `id, name, schedule_type, cron_expression, timezone, is_active, last_run_at, next_run_at, created_at, updated_at`

func (r *scheduleRepository) List(ctx context.Context) ([]*models.Schedule, error) {
	return r.query(ctx, "SELECT "+scheduleColumns+" FROM schedules ORDER BY id")
}

func (r *scheduleRepository) ListActive(ctx context.Context) ([]*models.Schedule, error) {
	return r.query(ctx, "SELECT "+scheduleColumns+" FROM schedules WHERE is_active ORDER BY id")
}

func (r *scheduleRepository) query(ctx context.Context, q string, args ...interface{}) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

func (r *scheduleRepository) Get(ctx context.Context, id int64) (*models.Schedule, error) {
	schedule, err := scanSchedule(r.db.QueryRowContext(ctx,
		"SELECT "+scheduleColumns+" FROM schedules WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	return schedule, err
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO schedules (name, schedule_type, cron_expression, timezone, is_active, next_run_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		schedule.Name, schedule.ScheduleType, schedule.CronExpression, schedule.Timezone,
		schedule.IsActive, schedule.NextRunAt,
	).Scan(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

func (r *scheduleRepository) Update(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET name = $1, schedule_type = $2, cron_expression = $3, timezone = $4, is_active = $5,
		    next_run_at = $6, updated_at = NOW()
		WHERE id = $7`,
		schedule.Name, schedule.ScheduleType, schedule.CronExpression, schedule.Timezone,
		schedule.IsActive, schedule.NextRunAt, schedule.ID,
	)
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("schedule not found")
	}
	return nil
}

func (r *scheduleRepository) Toggle(ctx context.Context, id int64) (*models.Schedule, error) {
	schedule, err := scanSchedule(r.db.QueryRowContext(ctx, `
		UPDATE schedules
		SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1
		RETURNING `+scheduleColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("schedule not found")
	}
	return schedule, err
}

func (r *scheduleRepository) MarkFired(ctx context.Context, id int64, firedAt time.Time, nextRun *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE schedules SET last_run_at = $1, next_run_at = $2, updated_at = NOW() WHERE id = $3",
		firedAt, nextRun, id)
	return err
}

func scanSchedule(scanner rowScanner) (*models.Schedule, error) {
	var (
		schedule models.Schedule
		cronExpr sql.NullString
		lastRun  sql.NullTime
		nextRun  sql.NullTime
	)
	if err := scanner.Scan(
		&schedule.ID,
		&schedule.Name,
		&schedule.ScheduleType,
		&cronExpr,
		&schedule.Timezone,
		&schedule.IsActive,
		&lastRun,
		&nextRun,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	schedule.CronExpression = cronExpr.String
	if lastRun.Valid {
		schedule.LastRunAt = &lastRun.Time
	}
	if nextRun.Valid {
		schedule.NextRunAt = &nextRun.Time
	}
	return &schedule, nil
}
