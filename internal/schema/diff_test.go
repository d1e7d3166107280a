package schema

import (
	"testing"

	"github.com/driftsync/driftsync-api/internal/models"
)

func snapshotWith(tables map[string]models.TableSchema) models.Snapshot {
	return models.Snapshot{
		Tables: tables,
		Views:  map[string]string{},
	}
}

func table(name string, cols ...models.ColumnSchema) models.TableSchema {
	return models.TableSchema{Name: name, Columns: cols}
}

func col(name, dataType string) models.ColumnSchema {
	return models.ColumnSchema{Name: name, DataType: dataType}
}

func TestDiffIdenticalSnapshotsIsEmpty(t *testing.T) {
	snap := snapshotWith(map[string]models.TableSchema{
		"users": table("users", col("id", "bigint"), col("email", "text")),
	})
	diff := Diff(snap, snap)
	if !diff.Empty() {
		t.Fatalf("diff of identical snapshots should be empty, got %+v", diff)
	}
}

func TestDiffAddedAndRemovedTables(t *testing.T) {
	old := snapshotWith(map[string]models.TableSchema{
		"users":  table("users", col("id", "bigint")),
		"legacy": table("legacy", col("id", "bigint")),
	})
	updated := snapshotWith(map[string]models.TableSchema{
		"users":  table("users", col("id", "bigint")),
		"orders": table("orders", col("id", "bigint")),
	})

	diff := Diff(old, updated)
	if len(diff.AddedTables) != 1 || diff.AddedTables[0] != "orders" {
		t.Fatalf("added=%v want=[orders]", diff.AddedTables)
	}
	if len(diff.RemovedTables) != 1 || diff.RemovedTables[0] != "legacy" {
		t.Fatalf("removed=%v want=[legacy]", diff.RemovedTables)
	}
	if len(diff.ModifiedTables) != 0 {
		t.Fatalf("modified=%v want empty", diff.ModifiedTables)
	}
}

func TestDiffColumnChanges(t *testing.T) {
	old := snapshotWith(map[string]models.TableSchema{
		"users": table("users",
			col("id", "integer"),
			col("email", "text"),
			col("nickname", "text"),
		),
	})
	updated := snapshotWith(map[string]models.TableSchema{
		"users": table("users",
			col("id", "bigint"),
			col("email", "text"),
			col("created_at", "timestamp with time zone"),
		),
	})

	diff := Diff(old, updated)
	td, ok := diff.ModifiedTables["users"]
	if !ok {
		t.Fatalf("users should be modified, got %+v", diff)
	}
	if len(td.AddedColumns) != 1 || td.AddedColumns[0] != "created_at" {
		t.Fatalf("added columns=%v want=[created_at]", td.AddedColumns)
	}
	if len(td.RemovedColumns) != 1 || td.RemovedColumns[0] != "nickname" {
		t.Fatalf("removed columns=%v want=[nickname]", td.RemovedColumns)
	}
	change, ok := td.ChangedColumns["id"]
	if !ok {
		t.Fatalf("id type change missing, got %+v", td.ChangedColumns)
	}
	if change.OldType != "integer" || change.NewType != "bigint" {
		t.Fatalf("change=%+v want integer->bigint", change)
	}
}

func TestFingerprintStable(t *testing.T) {
	snap := snapshotWith(map[string]models.TableSchema{
		"users": table("users", col("id", "bigint")),
		"posts": table("posts", col("id", "bigint"), col("body", "text")),
	})

	first, err := Fingerprint(snap)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	second, err := Fingerprint(snap)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if first != second {
		t.Fatalf("fingerprint not stable: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("fingerprint length=%d want=64", len(first))
	}
}

func TestFingerprintDetectsChange(t *testing.T) {
	a := snapshotWith(map[string]models.TableSchema{
		"users": table("users", col("id", "integer")),
	})
	b := snapshotWith(map[string]models.TableSchema{
		"users": table("users", col("id", "bigint")),
	})

	ha, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	hb, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if ha == hb {
		t.Fatal("different snapshots must not share a fingerprint")
	}
}

func TestFingerprintIgnoresCatalogOrder(t *testing.T) {
	fks := []models.ForeignKey{
		{Column: "author_id", ReferencesTable: "users", ReferencesColumn: "id"},
		{Column: "forum_id", ReferencesTable: "forums", ReferencesColumn: "id"},
	}
	idxs := []models.IndexSchema{
		{Name: "posts_author_idx", Columns: []string{"author_id"}},
		{Name: "posts_created_idx", Columns: []string{"created_at"}},
	}

	posts := table("posts", col("id", "bigint"), col("author_id", "bigint"))
	posts.ForeignKeys = []models.ForeignKey{fks[0], fks[1]}
	posts.Indexes = []models.IndexSchema{idxs[0], idxs[1]}

	permuted := posts
	permuted.ForeignKeys = []models.ForeignKey{fks[1], fks[0]}
	permuted.Indexes = []models.IndexSchema{idxs[1], idxs[0]}

	ha, err := Fingerprint(snapshotWith(map[string]models.TableSchema{"posts": posts}))
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	hb, err := Fingerprint(snapshotWith(map[string]models.TableSchema{"posts": permuted}))
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if ha != hb {
		t.Fatalf("foreign key and index order must not change the fingerprint: %s != %s", ha, hb)
	}
}

func TestFingerprintKeepsPrimaryKeyOrder(t *testing.T) {
	a := table("memberships", col("user_id", "bigint"), col("group_id", "bigint"))
	a.PrimaryKey = []string{"user_id", "group_id"}
	b := a
	b.PrimaryKey = []string{"group_id", "user_id"}

	ha, err := Fingerprint(snapshotWith(map[string]models.TableSchema{"memberships": a}))
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	hb, err := Fingerprint(snapshotWith(map[string]models.TableSchema{"memberships": b}))
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if ha == hb {
		t.Fatal("primary key column order is part of the schema")
	}
}
