package workflows

import (
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	dt "github.com/driftsync/driftsync-api/internal/temporal"
	"github.com/driftsync/driftsync-api/internal/temporal/activities"
)

// ExtractionWorkflow runs a single extraction job. The heavy lifting lives
// in the activity; the workflow exists to give the run durable retries and
// a terminal failure path that always lands on the job record.
func ExtractionWorkflow(ctx workflow.Context, params dt.ExtractionParams) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: dt.DefaultActivityTimeout,
		HeartbeatTimeout:    dt.HeartbeatTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting extraction workflow", "JobID", params.JobID)

	// The actual implementation is on the worker; this is just a proxy.
	var a *activities.Activities

	err := workflow.ExecuteActivity(ctx, a.RunExtractionActivity, params).Get(ctx, nil)
	if err != nil {
		logger.Error("Extraction activity failed.", "JobID", params.JobID, "error", err)
		// Run the safety net on a disconnected context so the job record
		// ends up terminal even when the workflow itself was cancelled.
		cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)
		cleanupCtx = workflow.WithActivityOptions(cleanupCtx, ao)
		if merr := workflow.ExecuteActivity(cleanupCtx, a.MarkJobFailedActivity, params.JobID, err.Error()).Get(cleanupCtx, nil); merr != nil {
			logger.Error("Failed to mark job failed.", "JobID", params.JobID, "error", merr)
		}
		return err
	}

	logger.Info("Extraction workflow completed.", "JobID", params.JobID)
	return nil
}
