package extract

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/lib/pq"
)

// Record is one extracted row keyed by column name. The physical row
// identifier is bookkeeping only and never appears in a record.
type Record map[string]interface{}

// BatchReader pulls one bounded batch and computes the next cursor.
// Implementations hold no transaction across calls; a crash mid-extraction
// loses at most the in-flight batch.
type BatchReader interface {
	ReadBatch(ctx context.Context, job *models.ExtractionJob, cur models.Cursor) ([]Record, models.Cursor, error)
}

// PostgresReader reads batches from a source Postgres table using either
// ctid pagination or a monotonic column.
type PostgresReader struct {
	db *sql.DB
}

func NewPostgresReader(source *models.Source) (*PostgresReader, error) {
	db, err := sql.Open("postgres", source.ConnString())
	if err != nil {
		return nil, connectivityError(err, "open source connection")
	}
	return &PostgresReader{db: db}, nil
}

func (r *PostgresReader) Close() error {
	return r.db.Close()
}

func (r *PostgresReader) ReadBatch(ctx context.Context, job *models.ExtractionJob, cur models.Cursor) ([]Record, models.Cursor, error) {
	query, args, err := batchQuery(job, cur)
	if err != nil {
		return nil, cur, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cur, connectivityError(err, "query batch from "+job.TableName)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, cur, dataError(err, "read column names")
	}

	var (
		batch []Record
		next  = cur
	)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, cur, dataError(err, "scan row")
		}

		record := make(Record, len(columns))
		for i, col := range columns {
			if job.Mode == models.PaginationPhysical && col == "ctid" {
				tid, ok := values[i].([]byte)
				if !ok {
					return nil, cur, dataError(fmt.Errorf("unexpected ctid type %T", values[i]), "read ctid")
				}
				next, err = parseTID(string(tid))
				if err != nil {
					return nil, cur, err
				}
				continue
			}
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		if job.Mode == models.PaginationColumn {
			raw, ok := record[job.CursorColumn]
			if !ok {
				return nil, cur, configErrorf("cursor column %q not present in table %q", job.CursorColumn, job.TableName)
			}
			next = models.Cursor{Mode: models.PaginationColumn, Value: EncodeValue(raw)}
		}
		batch = append(batch, record)
	}
	if err := rows.Err(); err != nil {
		return nil, cur, connectivityError(err, "iterate batch rows")
	}
	return batch, next, nil
}

// batchQuery builds the paginated SELECT for one batch. Ordering and filter
// follow the cursor mode: ctid with its natural (page, slot) ordering, or
// the cursor column ascending.
func batchQuery(job *models.ExtractionJob, cur models.Cursor) (string, []interface{}, error) {
	table := pq.QuoteIdentifier(job.TableName)

	switch job.Mode {
	case models.PaginationPhysical:
		query := fmt.Sprintf(
			"SELECT *, ctid FROM %s WHERE ctid > $1::tid ORDER BY ctid ASC LIMIT $2",
			table,
		)
		return query, []interface{}{cur.TID(), job.BatchSize}, nil

	case models.PaginationColumn:
		if job.CursorColumn == "" {
			return "", nil, configErrorf("cursor column must be provided for column-cursor pagination")
		}
		col := pq.QuoteIdentifier(job.CursorColumn)
		if cur.Value == "" {
			query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s ASC LIMIT $1", table, col)
			return query, []interface{}{job.BatchSize}, nil
		}
		query := fmt.Sprintf("SELECT * FROM %s WHERE %s > $1 ORDER BY %s ASC LIMIT $2", table, col, col)
		return query, []interface{}{cur.Value, job.BatchSize}, nil

	default:
		return "", nil, configErrorf("unknown pagination mode %q", job.Mode)
	}
}
