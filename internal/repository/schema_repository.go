package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

type SchemaRepository interface {
	// PersistIfChanged stores the snapshot as a new current version when
	// its hash differs from the current one. The returned bool reports
	// whether a new version was created.
	PersistIfChanged(ctx context.Context, sourceID int64, snap models.Snapshot, hash string) (*models.SchemaVersion, bool, error)
	GetCurrent(ctx context.Context, sourceID int64) (*models.SchemaVersion, error)
	GetVersion(ctx context.Context, sourceID int64, version int) (*models.SchemaVersion, error)
	ListVersions(ctx context.Context, sourceID int64) ([]*models.SchemaVersion, error)
}

type schemaRepository struct {
	db *sql.DB
}

func NewSchemaRepository(db *sql.DB) SchemaRepository {
	return &schemaRepository{db: db}
}

const schemaVersionColumns = `id, source_id, version, hash, is_current, schema, created_at`

func (r *schemaRepository) PersistIfChanged(ctx context.Context, sourceID int64, snap models.Snapshot, hash string) (*models.SchemaVersion, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, pkgerrors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	current, err := scanSchemaVersion(tx.QueryRowContext(ctx,
		"SELECT "+schemaVersionColumns+" FROM schema_versions WHERE source_id = $1 AND is_current FOR UPDATE", sourceID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, pkgerrors.Wrap(err, "failed to load current schema version")
	}
	if current != nil && current.Hash == hash {
		// Snapshot is already current; nothing to record.
		return current, false, nil
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) + 1 FROM schema_versions WHERE source_id = $1", sourceID,
	).Scan(&next); err != nil {
		return nil, false, pkgerrors.Wrap(err, "failed to allocate schema version number")
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE schema_versions SET is_current = FALSE WHERE source_id = $1 AND is_current", sourceID); err != nil {
		return nil, false, pkgerrors.Wrap(err, "failed to retire current schema version")
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, false, pkgerrors.Wrap(err, "failed to serialize schema snapshot")
	}

	created := &models.SchemaVersion{
		ID:        uuid.NewString(),
		SourceID:  sourceID,
		Version:   next,
		Hash:      hash,
		IsCurrent: true,
		Snapshot:  snap,
	}
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO schema_versions (id, source_id, version, hash, is_current, schema)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING created_at`,
		created.ID, created.SourceID, created.Version, created.Hash, payload,
	).Scan(&created.CreatedAt); err != nil {
		return nil, false, pkgerrors.Wrap(err, "failed to insert schema version")
	}

	if err := tx.Commit(); err != nil {
		return nil, false, pkgerrors.Wrap(err, "failed to commit schema version")
	}
	return created, true, nil
}

func (r *schemaRepository) GetCurrent(ctx context.Context, sourceID int64) (*models.SchemaVersion, error) {
	v, err := scanSchemaVersion(r.db.QueryRowContext(ctx,
		"SELECT "+schemaVersionColumns+" FROM schema_versions WHERE source_id = $1 AND is_current", sourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No snapshot captured yet
	}
	return v, err
}

func (r *schemaRepository) GetVersion(ctx context.Context, sourceID int64, version int) (*models.SchemaVersion, error) {
	v, err := scanSchemaVersion(r.db.QueryRowContext(ctx,
		"SELECT "+schemaVersionColumns+" FROM schema_versions WHERE source_id = $1 AND version = $2", sourceID, version))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (r *schemaRepository) ListVersions(ctx context.Context, sourceID int64) ([]*models.SchemaVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+schemaVersionColumns+" FROM schema_versions WHERE source_id = $1 ORDER BY version DESC", sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*models.SchemaVersion
	for rows.Next() {
		v, err := scanSchemaVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func scanSchemaVersion(scanner rowScanner) (*models.SchemaVersion, error) {
	var (
		v       models.SchemaVersion
		payload []byte
	)
	if err := scanner.Scan(&v.ID, &v.SourceID, &v.Version, &v.Hash, &v.IsCurrent, &payload, &v.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &v.Snapshot); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to decode schema snapshot")
	}
	return &v, nil
}
