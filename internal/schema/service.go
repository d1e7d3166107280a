package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/notification"
	"github.com/driftsync/driftsync-api/internal/repository"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// CaptureResult reports the outcome of one snapshot capture.
type CaptureResult struct {
	Version *models.SchemaVersion `json:"version"`
	Changed bool                  `json:"changed"`
	Diff    *DiffResult           `json:"diff,omitempty"`
}

type snapshotter interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
	Close() error
}

// Service captures source schema snapshots and records version history.
type Service struct {
	repo      repository.SchemaRepository
	notifier  notification.Service
	logger    zerolog.Logger
	inspector func(source *models.Source) (snapshotter, error)
}

func NewService(repo repository.SchemaRepository, notifier notification.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger.With().Str("component", "schema_service").Logger(),
		inspector: func(source *models.Source) (snapshotter, error) {
			return NewInspector(source)
		},
	}
}

// CaptureSnapshot inspects the source and persists a new version when its
// structure changed since the current one. Drift triggers a notification
// carrying the diff summary.
func (s *Service) CaptureSnapshot(ctx context.Context, source *models.Source) (*CaptureResult, error) {
	inspector, err := s.inspector(source)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to source")
	}
	defer inspector.Close()

	snap, err := inspector.Snapshot(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to inspect source schema")
	}

	hash, err := Fingerprint(snap)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to fingerprint snapshot")
	}

	previous, err := s.repo.GetCurrent(ctx, source.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load current schema version")
	}

	version, changed, err := s.repo.PersistIfChanged(ctx, source.ID, snap, hash)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to persist schema version")
	}

	result := &CaptureResult{Version: version, Changed: changed}
	if !changed {
		s.logger.Debug().Int64("source_id", source.ID).Int("version", version.Version).Msg("schema unchanged")
		return result, nil
	}

	s.logger.Info().
		Int64("source_id", source.ID).
		Int("version", version.Version).
		Str("hash", hash).
		Msg("captured new schema version")

	// Drift only exists relative to a prior version; the first capture
	// is a baseline, not a change.
	if previous != nil {
		diff := Diff(previous.Snapshot, snap)
		result.Diff = &diff
		if s.notifier != nil {
			summary := summarizeDiff(diff)
			if err := s.notifier.NotifySchemaDrift(ctx, source.ID, version.Version, summary); err != nil {
				s.logger.Warn().Err(err).Int64("source_id", source.ID).Msg("failed to publish schema drift notification")
			}
		}
	}
	return result, nil
}

// Current returns the current schema version for the source, or nil when no
// snapshot has been captured yet.
func (s *Service) Current(ctx context.Context, sourceID int64) (*models.SchemaVersion, error) {
	return s.repo.GetCurrent(ctx, sourceID)
}

func (s *Service) Versions(ctx context.Context, sourceID int64) ([]*models.SchemaVersion, error) {
	return s.repo.ListVersions(ctx, sourceID)
}

// Compare diffs two stored versions of the same source.
func (s *Service) Compare(ctx context.Context, sourceID int64, fromVersion, toVersion int) (*DiffResult, error) {
	from, err := s.repo.GetVersion(ctx, sourceID, fromVersion)
	if err != nil {
		return nil, err
	}
	if from == nil {
		return nil, fmt.Errorf("schema version %d not found", fromVersion)
	}
	to, err := s.repo.GetVersion(ctx, sourceID, toVersion)
	if err != nil {
		return nil, err
	}
	if to == nil {
		return nil, fmt.Errorf("schema version %d not found", toVersion)
	}
	diff := Diff(from.Snapshot, to.Snapshot)
	return &diff, nil
}

func summarizeDiff(diff DiffResult) string {
	var parts []string
	if n := len(diff.AddedTables); n > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) added", n))
	}
	if n := len(diff.RemovedTables); n > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) removed", n))
	}
	if n := len(diff.ModifiedTables); n > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) modified", n))
	}
	if len(parts) == 0 {
		return "Schema structure changed."
	}
	return strings.Join(parts, ", ") + "."
}
