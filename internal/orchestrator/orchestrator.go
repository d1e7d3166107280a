package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/workflowservice/v1"
	tc "go.temporal.io/sdk/client"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/statestore"
	"github.com/driftsync/driftsync-api/internal/temporal"
	"github.com/driftsync/driftsync-api/internal/temporal/workflows"
)

const (
	MinBatchSize     = 100
	MaxBatchSize     = 10000
	DefaultBatchSize = 1000
)

// TemporalClient is the slice of the Temporal client the orchestrator uses.
type TemporalClient interface {
	ExecuteWorkflow(ctx context.Context, options tc.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tc.WorkflowRun, error)
	DescribeWorkflowExecution(ctx context.Context, workflowID, runID string) (*workflowservice.DescribeWorkflowExecutionResponse, error)
}

// JobStore is the durable record store for extraction jobs. Satisfied by
// the Redis state store.
type JobStore interface {
	SaveJob(ctx context.Context, job *models.ExtractionJob) error
	GetJob(ctx context.Context, id string) (*models.ExtractionJob, error)
	ListJobs(ctx context.Context) ([]*models.ExtractionJob, error)
}

// SubmitRequest describes one extraction run to start.
type SubmitRequest struct {
	SourceID     int64                 `json:"source_id"`
	TableName    string                `json:"table_name"`
	Mode         models.PaginationMode `json:"mode"`
	CursorColumn string                `json:"cursor_column,omitempty"`
	BatchSize    int                   `json:"batch_size,omitempty"`
}

// JobStatus is the synthesized view served when the job record has been
// evicted from the state store but Temporal still knows the workflow.
type JobStatus struct {
	ID     string           `json:"id"`
	Status models.JobStatus `json:"status"`
	Error  string           `json:"error,omitempty"`
}

// JobList partitions retained jobs by liveness.
type JobList struct {
	Active    []*models.ExtractionJob `json:"active"`
	Completed []*models.ExtractionJob `json:"completed"`
}

// Orchestrator owns the extraction job lifecycle: it validates and persists
// job records, starts their workflows, and answers status queries.
type Orchestrator struct {
	store    JobStore
	temporal TemporalClient
	logger   zerolog.Logger
}

func New(store JobStore, temporalClient TemporalClient, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		temporal: temporalClient,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Submit validates the request, persists a pending job record, and starts
// its workflow. The record is written before the workflow starts so a
// crash between the two leaves a visible pending job, never a running
// workflow without a record.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*models.ExtractionJob, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.ExtractionJob{
		ID:           uuid.NewString(),
		SourceID:     req.SourceID,
		TableName:    req.TableName,
		Mode:         req.Mode,
		CursorColumn: req.CursorColumn,
		Cursor:       models.InitialCursor(req.Mode),
		BatchSize:    req.BatchSize,
		Status:       models.JobStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := o.store.SaveJob(ctx, job); err != nil {
		return nil, errors.Wrap(err, "failed to persist job record")
	}

	opts := tc.StartWorkflowOptions{
		ID:        temporal.ExtractWorkflowIDPrefix + job.ID,
		TaskQueue: temporal.TaskQueueName,
	}
	run, err := o.temporal.ExecuteWorkflow(ctx, opts, workflows.ExtractionWorkflow, temporal.ExtractionParams{JobID: job.ID})
	if err != nil {
		// A workflow that never started has no running phase: the job
		// goes straight from pending to failed here, while the worker
		// owns every later transition.
		job.Status = models.JobStatusFailed
		job.Error = fmt.Sprintf("failed to start workflow: %v", err)
		job.UpdatedAt = time.Now().UTC()
		if serr := o.store.SaveJob(ctx, job); serr != nil {
			o.logger.Error().Err(serr).Str("job_id", job.ID).Msg("failed to persist failure state")
		}
		return nil, errors.Wrap(err, "failed to start extraction workflow")
	}

	job.WorkflowID = run.GetID()
	job.RunID = run.GetRunID()
	job.UpdatedAt = time.Now().UTC()
	if err := o.store.SaveJob(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to record workflow identity")
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("workflow_id", job.WorkflowID).
		Str("table", job.TableName).
		Str("mode", string(job.Mode)).
		Msg("Extraction job submitted")
	return job, nil
}

// Get returns the full job record, or statestore.ErrNotFound.
func (o *Orchestrator) Get(ctx context.Context, jobID string) (*models.ExtractionJob, error) {
	return o.store.GetJob(ctx, jobID)
}

// Status answers from the state store when the record is retained, and
// falls back to Temporal's workflow visibility when it is not.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err == nil {
		return &JobStatus{ID: job.ID, Status: job.Status, Error: job.Error}, nil
	}
	if !errors.Is(err, statestore.ErrNotFound) {
		return nil, err
	}

	resp, derr := o.temporal.DescribeWorkflowExecution(ctx, temporal.ExtractWorkflowIDPrefix+jobID, "")
	if derr != nil {
		return nil, statestore.ErrNotFound
	}
	return synthesizeStatus(jobID, resp), nil
}

// List returns retained jobs partitioned into active and terminal.
func (o *Orchestrator) List(ctx context.Context) (*JobList, error) {
	jobs, err := o.store.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	list := &JobList{
		Active:    []*models.ExtractionJob{},
		Completed: []*models.ExtractionJob{},
	}
	for _, job := range jobs {
		if job.Status.Terminal() {
			list.Completed = append(list.Completed, job)
		} else {
			list.Active = append(list.Active, job)
		}
	}
	return list, nil
}

func validate(req *SubmitRequest) error {
	if req.SourceID <= 0 {
		return fmt.Errorf("source_id is required")
	}
	if strings.TrimSpace(req.TableName) == "" {
		return fmt.Errorf("table_name is required")
	}
	switch req.Mode {
	case models.PaginationPhysical:
		if req.CursorColumn != "" {
			return fmt.Errorf("cursor_column must not be set for %s mode", models.PaginationPhysical)
		}
	case models.PaginationColumn:
		if strings.TrimSpace(req.CursorColumn) == "" {
			return fmt.Errorf("cursor_column is required for %s mode", models.PaginationColumn)
		}
	default:
		return fmt.Errorf("unknown pagination mode %q", req.Mode)
	}
	if req.BatchSize == 0 {
		req.BatchSize = DefaultBatchSize
	}
	if req.BatchSize < MinBatchSize || req.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch_size must be between %d and %d", MinBatchSize, MaxBatchSize)
	}
	return nil
}

func synthesizeStatus(jobID string, resp *workflowservice.DescribeWorkflowExecutionResponse) *JobStatus {
	status := &JobStatus{ID: jobID}
	if resp == nil || resp.WorkflowExecutionInfo == nil {
		status.Status = models.JobStatusPending
		return status
	}
	switch resp.WorkflowExecutionInfo.Status {
	case enums.WORKFLOW_EXECUTION_STATUS_RUNNING:
		status.Status = models.JobStatusRunning
	case enums.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		status.Status = models.JobStatusCompleted
	case enums.WORKFLOW_EXECUTION_STATUS_FAILED,
		enums.WORKFLOW_EXECUTION_STATUS_TERMINATED,
		enums.WORKFLOW_EXECUTION_STATUS_TIMED_OUT,
		enums.WORKFLOW_EXECUTION_STATUS_CANCELED:
		status.Status = models.JobStatusFailed
		status.Error = "workflow " + strings.ToLower(strings.TrimPrefix(
			resp.WorkflowExecutionInfo.Status.String(), "WORKFLOW_EXECUTION_STATUS_"))
	default:
		status.Status = models.JobStatusPending
	}
	return status
}
