package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/driftsync/driftsync-api/internal/models"
)

type SyncTableRepository interface {
	List(ctx context.Context) ([]*models.SyncTable, error)
	ListActive(ctx context.Context) ([]*models.SyncTable, error)
	Get(ctx context.Context, id int64) (*models.SyncTable, error)
	Create(ctx context.Context, table *models.SyncTable) (*models.SyncTable, error)
	Update(ctx context.Context, table *models.SyncTable) (*models.SyncTable, error)
	Delete(ctx context.Context, id int64) error
	Toggle(ctx context.Context, id int64) (*models.SyncTable, error)
	TouchLastSynced(ctx context.Context, id int64, at time.Time) error
}

type syncTableRepository struct {
	db *sql.DB
}

func NewSyncTableRepository(db *sql.DB) SyncTableRepository {
	return &syncTableRepository{db: db}
}

const syncTableColumns = `id, source_id, table_name, is_active, cursor_column, batch_size, sync_interval, last_synced_at, created_at, updated_at`

func (r *syncTableRepository) List(ctx context.Context) ([]*models.SyncTable, error) {
	return r.query(ctx, "SELECT "+syncTableColumns+" FROM sync_tables ORDER BY source_id, table_name")
}

func (r *syncTableRepository) ListActive(ctx context.Context) ([]*models.SyncTable, error) {
	return r.query(ctx, "SELECT "+syncTableColumns+" FROM sync_tables WHERE is_active ORDER BY source_id, table_name")
}

func (r *syncTableRepository) query(ctx context.Context, q string, args ...interface{}) ([]*models.SyncTable, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []*models.SyncTable
	for rows.Next() {
		table, err := scanSyncTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

func (r *syncTableRepository) Get(ctx context.Context, id int64) (*models.SyncTable, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+syncTableColumns+" FROM sync_tables WHERE id = $1", id)
	table, err := scanSyncTable(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return table, nil
}

func (r *syncTableRepository) Create(ctx context.Context, table *models.SyncTable) (*models.SyncTable, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sync_tables (source_id, table_name, is_active, cursor_column, batch_size, sync_interval)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		table.SourceID, table.TableName, table.IsActive, table.CursorColumn, table.BatchSize, table.SyncInterval,
	).Scan(&table.ID, &table.CreatedAt, &table.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (r *syncTableRepository) Update(ctx context.Context, table *models.SyncTable) (*models.SyncTable, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_tables
		SET table_name = $1, is_active = $2, cursor_column = $3, batch_size = $4, sync_interval = $5, updated_at = NOW()
		WHERE id = $6`,
		table.TableName, table.IsActive, table.CursorColumn, table.BatchSize, table.SyncInterval, table.ID,
	)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (r *syncTableRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sync_tables WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("sync table not found")
	}
	return nil
}

func (r *syncTableRepository) Toggle(ctx context.Context, id int64) (*models.SyncTable, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE sync_tables
		SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1
		RETURNING `+syncTableColumns, id)
	table, err := scanSyncTable(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("sync table not found")
		}
		return nil, err
	}
	return table, nil
}

func (r *syncTableRepository) TouchLastSynced(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sync_tables SET last_synced_at = $1, updated_at = NOW() WHERE id = $2", at, id)
	return err
}

func scanSyncTable(scanner rowScanner) (*models.SyncTable, error) {
	var (
		table      models.SyncTable
		lastSynced sql.NullTime
	)
	if err := scanner.Scan(
		&table.ID,
		&table.SourceID,
		&table.TableName,
		&table.IsActive,
		&table.CursorColumn,
		&table.BatchSize,
		&table.SyncInterval,
		&lastSynced,
		&table.CreatedAt,
		&table.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lastSynced.Valid {
		table.LastSyncedAt = &lastSynced.Time
	}
	return &table, nil
}
