package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/utils"
)

type SourceRepository interface {
	List(ctx context.Context) ([]*models.Source, error)
	Get(ctx context.Context, id int64) (*models.Source, error)
	Create(ctx context.Context, source *models.Source) (*models.Source, error)
	Update(ctx context.Context, source *models.Source) (*models.Source, error)
	Delete(ctx context.Context, id int64) error
}

type sourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) SourceRepository {
	return &sourceRepository{db: db}
}

func (r *sourceRepository) List(ctx context.Context) ([]*models.Source, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, host, port, database, username, password_enc, is_active, created_at, updated_at
		FROM sources
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (r *sourceRepository) Get(ctx context.Context, id int64) (*models.Source, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, host, port, database, username, password_enc, is_active, created_at, updated_at
		FROM sources
		WHERE id = $1`, id)
	source, err := scanSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return source, nil
}

func (r *sourceRepository) Create(ctx context.Context, source *models.Source) (*models.Source, error) {
	encrypted, err := utils.EncryptPassword(source.Password)
	if err != nil {
		return nil, err
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO sources (name, host, port, database, username, password_enc, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		source.Name, source.Host, source.Port, source.Database, source.User, encrypted, source.IsActive,
	).Scan(&source.ID, &source.CreatedAt, &source.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return source, nil
}

func (r *sourceRepository) Update(ctx context.Context, source *models.Source) (*models.Source, error) {
	encrypted, err := utils.EncryptPassword(source.Password)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE sources
		SET name = $1, host = $2, port = $3, database = $4, username = $5, password_enc = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8`,
		source.Name, source.Host, source.Port, source.Database, source.User, encrypted, source.IsActive, source.ID,
	)
	if err != nil {
		return nil, err
	}
	return source, nil
}

func (r *sourceRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sources WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("source not found")
	}
	return nil
}

func scanSource(scanner rowScanner) (*models.Source, error) {
	var (
		source    models.Source
		encrypted []byte
	)
	if err := scanner.Scan(
		&source.ID,
		&source.Name,
		&source.Host,
		&source.Port,
		&source.Database,
		&source.User,
		&encrypted,
		&source.IsActive,
		&source.CreatedAt,
		&source.UpdatedAt,
	); err != nil {
		return nil, err
	}
	password, err := utils.DecryptPassword(encrypted)
	if err != nil {
		return nil, err
	}
	source.Password = password
	return &source, nil
}
