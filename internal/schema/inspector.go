package schema

import (
	"context"
	"database/sql"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/pkg/errors"
)

// Inspector introspects the full structural metadata of a source Postgres
// database.
type Inspector struct {
	db     *sql.DB
	dbName string
}

func NewInspector(source *models.Source) (*Inspector, error) {
	db, err := sql.Open("postgres", source.ConnString())
	if err != nil {
		return nil, errors.Wrap(err, "open source connection")
	}
	return &Inspector{db: db, dbName: source.Database}, nil
}

func (i *Inspector) Close() error {
	return i.db.Close()
}

// CheckConnection verifies the source is reachable with the stored
// credentials.
func (i *Inspector) CheckConnection(ctx context.Context) error {
	var one int
	if err := i.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return errors.Wrap(err, "connection check failed")
	}
	return nil
}

// FetchTables lists all tables in the public schema.
func (i *Inspector) FetchTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, errors.Wrap(err, "fetch tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// FetchColumns returns column metadata for one table in ordinal order.
func (i *Inspector) FetchColumns(ctx context.Context, tableName string) ([]models.ColumnSchema, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT column_name, data_type, character_maximum_length, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch columns for %s", tableName)
	}
	defer rows.Close()

	var columns []models.ColumnSchema
	for rows.Next() {
		var (
			col       models.ColumnSchema
			maxLength sql.NullInt64
			nullable  string
			def       sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.DataType, &maxLength, &nullable, &def); err != nil {
			return nil, err
		}
		if maxLength.Valid {
			col.MaxLength = &maxLength.Int64
		}
		col.Nullable = nullable == "YES"
		if def.Valid {
			col.Default = &def.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// Snapshot collects the complete structural snapshot: per-table columns,
// primary keys, foreign keys, indexes and row-count estimates, plus views,
// routines and database info.
func (i *Inspector) Snapshot(ctx context.Context) (models.Snapshot, error) {
	snap := models.Snapshot{
		Tables: map[string]models.TableSchema{},
		Views:  map[string]string{},
	}

	if err := i.db.QueryRowContext(ctx, "SELECT version()").Scan(&snap.DatabaseInfo.Version); err != nil {
		return snap, errors.Wrap(err, "fetch database version")
	}
	snap.DatabaseInfo.Name = i.dbName

	tables, err := i.FetchTables(ctx)
	if err != nil {
		return snap, err
	}

	for _, tableName := range tables {
		table := models.TableSchema{Name: tableName}

		table.Columns, err = i.FetchColumns(ctx, tableName)
		if err != nil {
			return snap, err
		}
		table.PrimaryKey, err = i.fetchPrimaryKey(ctx, tableName)
		if err != nil {
			return snap, err
		}
		table.ForeignKeys, err = i.fetchForeignKeys(ctx, tableName)
		if err != nil {
			return snap, err
		}
		table.Indexes, err = i.fetchIndexes(ctx, tableName)
		if err != nil {
			return snap, err
		}
		table.EstimatedRowCount, err = i.fetchRowEstimate(ctx, tableName)
		if err != nil {
			return snap, err
		}

		snap.Tables[tableName] = table
	}

	if err := i.fetchViews(ctx, &snap); err != nil {
		return snap, err
	}
	if err := i.fetchRoutines(ctx, &snap); err != nil {
		return snap, err
	}
	return snap, nil
}

func (i *Inspector) fetchPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT a.attname
		FROM pg_index ix
		JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = ANY(ix.indkey)
		WHERE ix.indrelid = $1::regclass AND ix.indisprimary
		ORDER BY array_position(ix.indkey, a.attnum)`, tableName)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch primary key for %s", tableName)
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		pk = append(pk, col)
	}
	return pk, rows.Err()
}

func (i *Inspector) fetchForeignKeys(ctx context.Context, tableName string) ([]models.ForeignKey, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = $1
		ORDER BY tc.constraint_name, kcu.column_name`, tableName)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch foreign keys for %s", tableName)
	}
	defer rows.Close()

	var fks []models.ForeignKey
	for rows.Next() {
		var fk models.ForeignKey
		if err := rows.Scan(&fk.Column, &fk.ReferencesTable, &fk.ReferencesColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func (i *Inspector) fetchIndexes(ctx context.Context, tableName string) ([]models.IndexSchema, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT i.relname, a.attname, ix.indisunique
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE t.relkind = 'r' AND t.relname = $1
		ORDER BY i.relname, a.attnum`, tableName)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch indexes for %s", tableName)
	}
	defer rows.Close()

	var (
		indexes []models.IndexSchema
		byName  = map[string]int{}
	)
	for rows.Next() {
		var (
			name, col string
			unique    bool
		)
		if err := rows.Scan(&name, &col, &unique); err != nil {
			return nil, err
		}
		if pos, ok := byName[name]; ok {
			indexes[pos].Columns = append(indexes[pos].Columns, col)
			continue
		}
		byName[name] = len(indexes)
		indexes = append(indexes, models.IndexSchema{Name: name, Columns: []string{col}, Unique: unique})
	}
	return indexes, rows.Err()
}

func (i *Inspector) fetchRowEstimate(ctx context.Context, tableName string) (int64, error) {
	var estimate sql.NullInt64
	err := i.db.QueryRowContext(ctx,
		"SELECT reltuples::bigint FROM pg_class WHERE relname = $1", tableName).Scan(&estimate)
	if err != nil && err != sql.ErrNoRows {
		return 0, errors.Wrapf(err, "fetch row estimate for %s", tableName)
	}
	if estimate.Valid && estimate.Int64 > 0 {
		return estimate.Int64, nil
	}
	return 0, nil
}

func (i *Inspector) fetchViews(ctx context.Context, snap *models.Snapshot) error {
	rows, err := i.db.QueryContext(ctx, `
		SELECT table_name, COALESCE(view_definition, '')
		FROM information_schema.views
		WHERE table_schema = 'public'
		ORDER BY table_name`)
	if err != nil {
		return errors.Wrap(err, "fetch views")
	}
	defer rows.Close()

	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return err
		}
		snap.Views[name] = definition
	}
	return rows.Err()
}

func (i *Inspector) fetchRoutines(ctx context.Context, snap *models.Snapshot) error {
	rows, err := i.db.QueryContext(ctx, `
		SELECT routine_name, COALESCE(data_type, '')
		FROM information_schema.routines
		WHERE routine_schema = 'public'
		ORDER BY routine_name`)
	if err != nil {
		return errors.Wrap(err, "fetch routines")
	}
	defer rows.Close()

	for rows.Next() {
		var routine models.RoutineSchema
		if err := rows.Scan(&routine.Name, &routine.ReturnType); err != nil {
			return err
		}
		snap.Functions = append(snap.Functions, routine)
	}
	return rows.Err()
}
