package worker

import (
	"github.com/rs/zerolog"
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/driftsync/driftsync-api/internal/temporal"
	"github.com/driftsync/driftsync-api/internal/temporal/activities"
	"github.com/driftsync/driftsync-api/internal/temporal/workflows"
)

// Start registers the extraction workflow and activities on the task queue
// and runs the Temporal worker in a background goroutine. The returned
// worker is stopped by the caller during shutdown.
func Start(temporalClient tc.Client, activityImpl *activities.Activities, logger zerolog.Logger) worker.Worker {
	w := worker.New(temporalClient, temporal.TaskQueueName, worker.Options{})

	w.RegisterWorkflow(workflows.ExtractionWorkflow)
	w.RegisterActivity(activityImpl)

	go func() {
		logger.Info().Str("task_queue", temporal.TaskQueueName).Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}
