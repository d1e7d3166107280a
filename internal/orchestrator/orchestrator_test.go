package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/workflow/v1"
	"go.temporal.io/api/workflowservice/v1"
	tc "go.temporal.io/sdk/client"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/statestore"
	"github.com/driftsync/driftsync-api/internal/temporal"
)

type fakeJobStore struct {
	jobs    map[string]*models.ExtractionJob
	saves   []models.JobStatus
	saveErr error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*models.ExtractionJob)}
}

func (f *fakeJobStore) SaveJob(_ context.Context, job *models.ExtractionJob) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := *job
	f.jobs[job.ID] = &copied
	f.saves = append(f.saves, job.Status)
	return nil
}

func (f *fakeJobStore) GetJob(_ context.Context, id string) (*models.ExtractionJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, statestore.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobStore) ListJobs(context.Context) ([]*models.ExtractionJob, error) {
	var jobs []*models.ExtractionJob
	for _, job := range f.jobs {
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type fakeWorkflowRun struct {
	id    string
	runID string
}

func (f *fakeWorkflowRun) GetID() string                             { return f.id }
func (f *fakeWorkflowRun) GetRunID() string                          { return f.runID }
func (f *fakeWorkflowRun) Get(context.Context, interface{}) error    { return nil }
func (f *fakeWorkflowRun) GetWithOptions(context.Context, interface{}, tc.WorkflowRunGetOptions) error {
	return nil
}

type fakeTemporalClient struct {
	started      []tc.StartWorkflowOptions
	startErr     error
	describeResp *workflowservice.DescribeWorkflowExecutionResponse
	describeErr  error
}

func (f *fakeTemporalClient) ExecuteWorkflow(_ context.Context, options tc.StartWorkflowOptions, _ interface{}, _ ...interface{}) (tc.WorkflowRun, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, options)
	return &fakeWorkflowRun{id: options.ID, runID: "run-1"}, nil
}

func (f *fakeTemporalClient) DescribeWorkflowExecution(context.Context, string, string) (*workflowservice.DescribeWorkflowExecutionResponse, error) {
	return f.describeResp, f.describeErr
}

func newTestOrchestrator(store *fakeJobStore, client *fakeTemporalClient) *Orchestrator {
	return New(store, client, zerolog.Nop())
}

func validRequest() SubmitRequest {
	return SubmitRequest{SourceID: 1, TableName: "events", Mode: models.PaginationPhysical}
}

func TestSubmitStartsWorkflow(t *testing.T) {
	store := newFakeJobStore()
	client := &fakeTemporalClient{}
	o := newTestOrchestrator(store, client)

	job, err := o.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != models.JobStatusPending {
		t.Fatalf("status=%s want=pending", job.Status)
	}
	if job.BatchSize != DefaultBatchSize {
		t.Fatalf("batch_size=%d want=%d", job.BatchSize, DefaultBatchSize)
	}
	if !job.Cursor.Equal(models.InitialCursor(models.PaginationPhysical)) {
		t.Fatalf("cursor=%+v, want initial physical position", job.Cursor)
	}
	if len(client.started) != 1 {
		t.Fatalf("workflows started=%d want=1", len(client.started))
	}
	opts := client.started[0]
	if opts.ID != temporal.ExtractWorkflowIDPrefix+job.ID {
		t.Fatalf("workflow id=%q want prefix %q + job id", opts.ID, temporal.ExtractWorkflowIDPrefix)
	}
	if opts.TaskQueue != temporal.TaskQueueName {
		t.Fatalf("task queue=%q want=%q", opts.TaskQueue, temporal.TaskQueueName)
	}
	if job.WorkflowID != opts.ID || job.RunID != "run-1" {
		t.Fatalf("workflow identity not recorded: %+v", job)
	}
	// The pending record lands before the workflow starts, then the
	// identity update follows.
	if len(store.saves) != 2 || store.saves[0] != models.JobStatusPending {
		t.Fatalf("saves=%v, want pending then identity update", store.saves)
	}
}

func TestSubmitValidation(t *testing.T) {
	cases := []struct {
		name string
		req  SubmitRequest
	}{
		{"missing source", SubmitRequest{TableName: "events", Mode: models.PaginationPhysical}},
		{"missing table", SubmitRequest{SourceID: 1, Mode: models.PaginationPhysical}},
		{"unknown mode", SubmitRequest{SourceID: 1, TableName: "events", Mode: "keyset"}},
		{"cursor column on physical", SubmitRequest{SourceID: 1, TableName: "events", Mode: models.PaginationPhysical, CursorColumn: "id"}},
		{"column mode without cursor column", SubmitRequest{SourceID: 1, TableName: "events", Mode: models.PaginationColumn}},
		{"batch too small", SubmitRequest{SourceID: 1, TableName: "events", Mode: models.PaginationPhysical, BatchSize: 50}},
		{"batch too large", SubmitRequest{SourceID: 1, TableName: "events", Mode: models.PaginationPhysical, BatchSize: 20000}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeJobStore()
			o := newTestOrchestrator(store, &fakeTemporalClient{})
			if _, err := o.Submit(context.Background(), tt.req); err == nil {
				t.Fatal("expected validation error")
			}
			if len(store.saves) != 0 {
				t.Fatal("invalid request must not persist a record")
			}
		})
	}
}

func TestSubmitWorkflowStartFailure(t *testing.T) {
	store := newFakeJobStore()
	client := &fakeTemporalClient{startErr: errors.New("temporal unavailable")}
	o := newTestOrchestrator(store, client)

	_, err := o.Submit(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected error when workflow start fails")
	}
	// The record persists in failed state so the attempt stays visible.
	if len(store.jobs) != 1 {
		t.Fatalf("records=%d want=1", len(store.jobs))
	}
	for _, job := range store.jobs {
		if job.Status != models.JobStatusFailed {
			t.Fatalf("status=%s want=failed", job.Status)
		}
		if !strings.Contains(job.Error, "temporal unavailable") {
			t.Fatalf("error=%q, want start failure recorded", job.Error)
		}
	}
}

func TestStatusFromStore(t *testing.T) {
	store := newFakeJobStore()
	store.jobs["j1"] = &models.ExtractionJob{ID: "j1", Status: models.JobStatusRunning}
	o := newTestOrchestrator(store, &fakeTemporalClient{})

	status, err := o.Status(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != models.JobStatusRunning {
		t.Fatalf("status=%s want=running", status.Status)
	}
}

func TestStatusFallsBackToWorkflowVisibility(t *testing.T) {
	cases := []struct {
		name       string
		execStatus enums.WorkflowExecutionStatus
		want       models.JobStatus
		wantErrMsg string
	}{
		{"running", enums.WORKFLOW_EXECUTION_STATUS_RUNNING, models.JobStatusRunning, ""},
		{"completed", enums.WORKFLOW_EXECUTION_STATUS_COMPLETED, models.JobStatusCompleted, ""},
		{"failed", enums.WORKFLOW_EXECUTION_STATUS_FAILED, models.JobStatusFailed, "failed"},
		{"terminated", enums.WORKFLOW_EXECUTION_STATUS_TERMINATED, models.JobStatusFailed, "terminated"},
		{"timed out", enums.WORKFLOW_EXECUTION_STATUS_TIMED_OUT, models.JobStatusFailed, "timed_out"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeTemporalClient{
				describeResp: &workflowservice.DescribeWorkflowExecutionResponse{
					WorkflowExecutionInfo: &workflow.WorkflowExecutionInfo{Status: tt.execStatus},
				},
			}
			o := newTestOrchestrator(newFakeJobStore(), client)

			status, err := o.Status(context.Background(), "evicted")
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if status.ID != "evicted" {
				t.Fatalf("id=%q want=evicted", status.ID)
			}
			if status.Status != tt.want {
				t.Fatalf("status=%s want=%s", status.Status, tt.want)
			}
			if tt.wantErrMsg == "" && status.Error != "" {
				t.Fatalf("error=%q, want empty", status.Error)
			}
			if tt.wantErrMsg != "" && !strings.Contains(status.Error, tt.wantErrMsg) {
				t.Fatalf("error=%q, want it to contain %q", status.Error, tt.wantErrMsg)
			}
		})
	}
}

func TestStatusUnknownEverywhere(t *testing.T) {
	client := &fakeTemporalClient{describeErr: errors.New("workflow not found")}
	o := newTestOrchestrator(newFakeJobStore(), client)

	if _, err := o.Status(context.Background(), "missing"); !errors.Is(err, statestore.ErrNotFound) {
		t.Fatalf("err=%v want=ErrNotFound", err)
	}
}

func TestListPartitionsByLiveness(t *testing.T) {
	store := newFakeJobStore()
	store.jobs["a"] = &models.ExtractionJob{ID: "a", Status: models.JobStatusRunning}
	store.jobs["b"] = &models.ExtractionJob{ID: "b", Status: models.JobStatusCompleted}
	store.jobs["c"] = &models.ExtractionJob{ID: "c", Status: models.JobStatusPending}
	store.jobs["d"] = &models.ExtractionJob{ID: "d", Status: models.JobStatusFailed}
	o := newTestOrchestrator(store, &fakeTemporalClient{})

	list, err := o.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Active) != 2 {
		t.Fatalf("active=%d want=2", len(list.Active))
	}
	if len(list.Completed) != 2 {
		t.Fatalf("completed=%d want=2", len(list.Completed))
	}
}
