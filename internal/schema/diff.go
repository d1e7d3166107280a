package schema

import (
	"sort"

	"github.com/driftsync/driftsync-api/internal/models"
)

type TypeChange struct {
	OldType string `json:"old_type"`
	NewType string `json:"new_type"`
}

type TableDiff struct {
	AddedColumns   []string              `json:"added_columns,omitempty"`
	RemovedColumns []string              `json:"removed_columns,omitempty"`
	ChangedColumns map[string]TypeChange `json:"changed_columns,omitempty"`
}

type DiffResult struct {
	AddedTables    []string             `json:"added_tables"`
	RemovedTables  []string             `json:"removed_tables"`
	ModifiedTables map[string]TableDiff `json:"modified_tables"`
}

func (d DiffResult) Empty() bool {
	return len(d.AddedTables) == 0 && len(d.RemovedTables) == 0 && len(d.ModifiedTables) == 0
}

// Diff computes the structural difference from snapshot a to snapshot b.
// A table appears in ModifiedTables only if it has at least one added,
// removed, or type-changed column.
func Diff(a, b models.Snapshot) DiffResult {
	result := DiffResult{
		AddedTables:    []string{},
		RemovedTables:  []string{},
		ModifiedTables: map[string]TableDiff{},
	}

	for name := range b.Tables {
		if _, ok := a.Tables[name]; !ok {
			result.AddedTables = append(result.AddedTables, name)
		}
	}
	for name := range a.Tables {
		if _, ok := b.Tables[name]; !ok {
			result.RemovedTables = append(result.RemovedTables, name)
		}
	}
	sort.Strings(result.AddedTables)
	sort.Strings(result.RemovedTables)

	for name, oldTable := range a.Tables {
		newTable, ok := b.Tables[name]
		if !ok {
			continue
		}
		if td, changed := diffTable(oldTable, newTable); changed {
			result.ModifiedTables[name] = td
		}
	}
	return result
}

func diffTable(oldTable, newTable models.TableSchema) (TableDiff, bool) {
	td := TableDiff{ChangedColumns: map[string]TypeChange{}}

	for _, col := range newTable.Columns {
		if _, ok := oldTable.Column(col.Name); !ok {
			td.AddedColumns = append(td.AddedColumns, col.Name)
		}
	}
	for _, col := range oldTable.Columns {
		newCol, ok := newTable.Column(col.Name)
		if !ok {
			td.RemovedColumns = append(td.RemovedColumns, col.Name)
			continue
		}
		if col.DataType != newCol.DataType {
			td.ChangedColumns[col.Name] = TypeChange{OldType: col.DataType, NewType: newCol.DataType}
		}
	}
	sort.Strings(td.AddedColumns)
	sort.Strings(td.RemovedColumns)

	changed := len(td.AddedColumns) > 0 || len(td.RemovedColumns) > 0 || len(td.ChangedColumns) > 0
	return td, changed
}
