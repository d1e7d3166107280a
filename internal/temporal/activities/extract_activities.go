package activities

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/driftsync/driftsync-api/internal/extract"
	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/notification"
	"github.com/driftsync/driftsync-api/internal/repository"
	"github.com/driftsync/driftsync-api/internal/statestore"
	"github.com/driftsync/driftsync-api/internal/temporal"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Activities struct {
	Store      *statestore.RedisStore
	SourceRepo repository.SourceRepository
	Sink       extract.Sink
	Notifier   notification.Service
	Logger     zerolog.Logger
}

// RunExtractionActivity drives one extraction job to a terminal state. The
// job record is checkpointed after every batch, so a retried activity
// resumes from the last persisted cursor rather than from scratch.
func (a *Activities) RunExtractionActivity(ctx context.Context, params temporal.ExtractionParams) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Running extraction", "jobID", params.JobID)

	job, err := a.Store.GetJob(ctx, params.JobID)
	if err != nil {
		return errors.Wrapf(err, "failed to load job %s", params.JobID)
	}
	if job.Status.Terminal() {
		logger.Info("Job already terminal, nothing to do", "jobID", job.ID, "status", string(job.Status))
		return nil
	}

	source, err := a.SourceRepo.Get(ctx, job.SourceID)
	if err != nil {
		return a.failJob(ctx, job, errors.Wrap(err, "failed to fetch source"))
	}
	if source == nil {
		return a.failJob(ctx, job, fmt.Errorf("source %d not found", job.SourceID))
	}

	reader, err := extract.NewPostgresReader(source)
	if err != nil {
		return a.failJob(ctx, job, errors.Wrap(err, "failed to connect to source"))
	}
	defer reader.Close()

	if a.Notifier != nil {
		if err := a.Notifier.NotifyExtractionStarted(ctx, job.ID, job.TableName); err != nil {
			logger.Warn("Failed to publish start notification", "error", err)
		}
	}

	runner := extract.NewRunner(reader, a.Sink, a.Store, a.Logger).
		WithHeartbeat(func(batchNum int) {
			activity.RecordHeartbeat(ctx, batchNum)
		})

	if err := runner.Run(ctx, job); err != nil {
		if a.Notifier != nil {
			if nerr := a.Notifier.NotifyExtractionFailed(ctx, job.ID, job.TableName, err.Error()); nerr != nil {
				logger.Warn("Failed to publish failure notification", "error", nerr)
			}
		}
		return err
	}

	if a.Notifier != nil {
		if err := a.Notifier.NotifyExtractionCompleted(ctx, job.ID, job.TableName, job.ExtractedRecords); err != nil {
			logger.Warn("Failed to publish completion notification", "error", err)
		}
	}
	return nil
}

// MarkJobFailedActivity is the workflow's safety net: it pins a terminal
// failed status onto the job record when the extraction activity exhausted
// its retries without being able to persist one itself.
func (a *Activities) MarkJobFailedActivity(ctx context.Context, jobID, reason string) error {
	logger := activity.GetLogger(ctx)

	job, err := a.Store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, statestore.ErrNotFound) {
			logger.Warn("Job record missing, cannot mark failed", "jobID", jobID)
			return nil
		}
		return err
	}
	if job.Status.Terminal() {
		return nil
	}

	job.Status = models.JobStatusFailed
	job.Error = reason
	job.UpdatedAt = time.Now().UTC()
	return a.Store.SaveJob(ctx, job)
}

func (a *Activities) failJob(ctx context.Context, job *models.ExtractionJob, cause error) error {
	job.Status = models.JobStatusFailed
	job.Error = cause.Error()
	job.UpdatedAt = time.Now().UTC()
	if err := a.Store.SaveJob(ctx, job); err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist failure state")
	}
	if a.Notifier != nil {
		if err := a.Notifier.NotifyExtractionFailed(ctx, job.ID, job.TableName, cause.Error()); err != nil {
			a.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to publish failure notification")
		}
	}
	return cause
}
