package temporal

import "time"

// TaskQueueName is the name of the Temporal task queue used for extraction workflows.
const TaskQueueName = "DRIFTSYNC_EXTRACTION"

// ExtractWorkflowIDPrefix is the prefix used for extraction workflow IDs.
const ExtractWorkflowIDPrefix = "driftsync-extract-"

// DefaultActivityTimeout is the default timeout duration for Temporal activities
// in extraction workflows. Long-running extractions report liveness via
// heartbeats instead of extending this.
const DefaultActivityTimeout = 30 * time.Minute

// HeartbeatTimeout bounds the gap between batch checkpoints before Temporal
// considers the activity dead.
const HeartbeatTimeout = 2 * time.Minute

// ExtractionParams defines the input for extraction workflows. The job
// record itself lives in the state store; the workflow carries only its ID.
type ExtractionParams struct {
	JobID string
}
