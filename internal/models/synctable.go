package models

import "time"

// SyncTable registers one source table for scheduled incremental
// extraction. (source_id, table_name) is unique.
type SyncTable struct {
	ID           int64      `json:"id" db:"id"`
	SourceID     int64      `json:"source_id" db:"source_id"`
	TableName    string     `json:"table_name" db:"table_name"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CursorColumn string     `json:"cursor_column" db:"cursor_column"`
	BatchSize    int        `json:"batch_size" db:"batch_size"`
	SyncInterval int        `json:"sync_interval" db:"sync_interval"` // seconds
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty" db:"last_synced_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
