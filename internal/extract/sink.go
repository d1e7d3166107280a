package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Sink persists one batch artifact and returns its location. Artifacts are
// named {table}_{jobID}_{batch}_{timestamp}.json so the transform/load
// collaborators can glob on the (table, job id) prefix.
type Sink interface {
	WriteBatch(ctx context.Context, tableName, jobID string, batchNum int, records []Record) (string, error)
}

func batchFileName(tableName, jobID string, batchNum int, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d_%s.json", tableName, jobID, batchNum, at.Format("20060102_150405"))
}

// LocalSink writes batch artifacts to a local directory.
type LocalSink struct {
	dir    string
	logger zerolog.Logger
}

func NewLocalSink(dir string, logger zerolog.Logger) (*LocalSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &LocalSink{
		dir:    dir,
		logger: logger.With().Str("component", "local_sink").Logger(),
	}, nil
}

func (s *LocalSink) WriteBatch(ctx context.Context, tableName, jobID string, batchNum int, records []Record) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", dataError(err, "serialize batch")
	}

	path := filepath.Join(s.dir, batchFileName(tableName, jobID, batchNum, time.Now()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write batch file %s: %w", path, err)
	}

	s.logger.Info().
		Str("table", tableName).
		Str("job_id", jobID).
		Int("batch", batchNum).
		Int("records", len(records)).
		Str("path", path).
		Msg("Saved batch")
	return path, nil
}
