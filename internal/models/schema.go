package models

import "time"

// SchemaVersion is one immutable snapshot of a source's structure.
// Versions are unique and strictly increasing per source; exactly one
// version per source carries IsCurrent.
type SchemaVersion struct {
	ID        string    `json:"id" db:"id"`
	SourceID  int64     `json:"source_id" db:"source_id"`
	Version   int       `json:"version" db:"version"`
	Hash      string    `json:"hash" db:"hash"`
	IsCurrent bool      `json:"is_current" db:"is_current"`
	Snapshot  Snapshot  `json:"schema" db:"schema"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Snapshot is the full structural metadata of a source database.
type Snapshot struct {
	Tables       map[string]TableSchema `json:"tables"`
	Views        map[string]string      `json:"views"`
	Functions    []RoutineSchema        `json:"functions"`
	DatabaseInfo DatabaseInfo           `json:"database_info"`
}

type DatabaseInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type TableSchema struct {
	Name              string         `json:"name"`
	Columns           []ColumnSchema `json:"columns"`
	PrimaryKey        []string       `json:"primary_key"`
	ForeignKeys       []ForeignKey   `json:"foreign_keys"`
	Indexes           []IndexSchema  `json:"indexes"`
	EstimatedRowCount int64          `json:"estimated_row_count"`
}

type ColumnSchema struct {
	Name      string  `json:"name"`
	DataType  string  `json:"data_type"`
	MaxLength *int64  `json:"max_length"`
	Nullable  bool    `json:"nullable"`
	Default   *string `json:"default"`
}

type ForeignKey struct {
	Column           string `json:"column"`
	ReferencesTable  string `json:"references_table"`
	ReferencesColumn string `json:"references_column"`
}

type IndexSchema struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

type RoutineSchema struct {
	Name       string `json:"name"`
	ReturnType string `json:"return_type"`
}

// Column returns the named column schema, if present.
func (t TableSchema) Column(name string) (ColumnSchema, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}
