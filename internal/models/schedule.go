package models

import "time"

type ScheduleType string

const (
	ScheduleManual ScheduleType = "manual"
	ScheduleCron   ScheduleType = "cron"
)

// Schedule drives the scheduler loop. NextRunAt is always the earliest
// future firing time of the cron expression evaluated in Timezone; it is
// recomputed immediately after each firing.
type Schedule struct {
	ID             int64        `json:"id" db:"id"`
	Name           string       `json:"name" db:"name"`
	ScheduleType   ScheduleType `json:"schedule_type" db:"schedule_type"`
	CronExpression string       `json:"cron_expression,omitempty" db:"cron_expression"`
	Timezone       string       `json:"timezone" db:"timezone"`
	IsActive       bool         `json:"is_active" db:"is_active"`
	LastRunAt      *time.Time   `json:"last_run_at,omitempty" db:"last_run_at"`
	NextRunAt      *time.Time   `json:"next_run_at,omitempty" db:"next_run_at"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}
