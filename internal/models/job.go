package models

import "time"

type PaginationMode string

const (
	// PaginationPhysical pages over the storage-level row identifier (ctid).
	PaginationPhysical PaginationMode = "physical-cursor"
	// PaginationColumn pages over a caller-supplied monotonic column.
	PaginationColumn PaginationMode = "column-cursor"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ExtractionJob is the durable record of one incremental extraction run.
// It is created by the orchestrator, mutated only by the worker driving it,
// and checkpointed to the state store after every batch.
type ExtractionJob struct {
	ID               string         `json:"id"`
	SourceID         int64          `json:"source_id"`
	TableName        string         `json:"table_name"`
	Mode             PaginationMode `json:"mode"`
	CursorColumn     string         `json:"cursor_column,omitempty"`
	Cursor           Cursor         `json:"cursor"`
	BatchSize        int            `json:"batch_size"`
	Status           JobStatus      `json:"status"`
	Error            string         `json:"error,omitempty"`
	ExtractedRecords int64          `json:"extracted_records"`
	WorkflowID       string         `json:"workflow_id,omitempty"`
	RunID            string         `json:"run_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
