package extract

import (
	"context"
	"time"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/rs/zerolog"
)

// JobStore is the durable checkpoint target for job records. The record is
// overwritten after every batch; on worker crash a resumed job re-reads at
// most one batch's worth of already-seen rows.
type JobStore interface {
	SaveJob(ctx context.Context, job *models.ExtractionJob) error
}

// Runner drives one extraction job to a terminal state: read a batch,
// persist the artifact, checkpoint cursor and counters, repeat. Batches are
// strictly sequential within a job.
type Runner struct {
	reader    BatchReader
	sink      Sink
	store     JobStore
	logger    zerolog.Logger
	heartbeat func(batchNum int)
}

func NewRunner(reader BatchReader, sink Sink, store JobStore, logger zerolog.Logger) *Runner {
	return &Runner{
		reader: reader,
		sink:   sink,
		store:  store,
		logger: logger.With().Str("component", "extract_runner").Logger(),
	}
}

// WithHeartbeat registers a callback invoked after every checkpointed
// batch, used by the Temporal activity to report liveness.
func (r *Runner) WithHeartbeat(fn func(batchNum int)) *Runner {
	r.heartbeat = fn
	return r
}

// Run executes the batch loop. The loop stops when a batch returns fewer
// rows than the batch size or the cursor stops advancing, whichever comes
// first; a stalled cursor is reported as an ordinary completion.
func (r *Runner) Run(ctx context.Context, job *models.ExtractionJob) error {
	job.Status = models.JobStatusRunning
	job.UpdatedAt = time.Now().UTC()
	if err := r.store.SaveJob(ctx, job); err != nil {
		return r.fail(ctx, job, connectivityError(err, "checkpoint running state"))
	}

	cur := job.Cursor
	if cur.Mode == "" {
		cur = models.InitialCursor(job.Mode)
	}

	batchNum := 0
	for {
		records, next, err := r.reader.ReadBatch(ctx, job, cur)
		if err != nil {
			return r.fail(ctx, job, err)
		}

		hasMore := len(records) == job.BatchSize && !next.Equal(cur)

		if len(records) == 0 {
			break
		}

		batchNum++
		if _, err := r.sink.WriteBatch(ctx, job.TableName, job.ID, batchNum, records); err != nil {
			return r.fail(ctx, job, err)
		}

		job.ExtractedRecords += int64(len(records))
		job.Cursor = next
		job.UpdatedAt = time.Now().UTC()
		if err := r.store.SaveJob(ctx, job); err != nil {
			return r.fail(ctx, job, connectivityError(err, "checkpoint batch"))
		}
		if r.heartbeat != nil {
			r.heartbeat(batchNum)
		}

		cur = next
		if !hasMore {
			break
		}
	}

	job.Status = models.JobStatusCompleted
	job.UpdatedAt = time.Now().UTC()
	if err := r.store.SaveJob(ctx, job); err != nil {
		return r.fail(ctx, job, connectivityError(err, "checkpoint completed state"))
	}

	r.logger.Info().
		Str("job_id", job.ID).
		Str("table", job.TableName).
		Int("batches", batchNum).
		Int64("records", job.ExtractedRecords).
		Msg("Extraction completed")
	return nil
}

// fail records the terminal failure on the job and stops the loop. Progress
// already checkpointed is retained; a retry resumes from the last good
// cursor, not from scratch.
func (r *Runner) fail(ctx context.Context, job *models.ExtractionJob, cause error) error {
	job.Status = models.JobStatusFailed
	job.Error = cause.Error()
	job.UpdatedAt = time.Now().UTC()
	if err := r.store.SaveJob(ctx, job); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist failure state")
	}
	r.logger.Error().Err(cause).Str("job_id", job.ID).Str("table", job.TableName).Msg("Extraction failed")
	return cause
}
