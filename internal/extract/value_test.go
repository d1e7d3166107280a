package extract

import (
	"testing"
	"time"

	"github.com/driftsync/driftsync-api/internal/models"
)

func TestEncodeValue(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{ts, "2026-03-14T09:26:53Z"},
		{[]byte("abc"), "abc"},
		{"xyz", "xyz"},
		{int64(12345), "12345"},
		{float64(1.5), "1.5"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := EncodeValue(c.in); got != c.want {
			t.Errorf("EncodeValue(%v)=%q want=%q", c.in, got, c.want)
		}
	}
}

func TestParseTID(t *testing.T) {
	cur, err := parseTID("(42,7)")
	if err != nil {
		t.Fatalf("parseTID: %v", err)
	}
	if cur.Page != 42 || cur.Slot != 7 {
		t.Fatalf("cursor=(%d,%d) want=(42,7)", cur.Page, cur.Slot)
	}
	if cur.Mode != models.PaginationPhysical {
		t.Fatalf("mode=%s want=%s", cur.Mode, models.PaginationPhysical)
	}

	if _, err := parseTID("garbage"); err == nil {
		t.Fatal("expected error for malformed tid")
	}
}

func TestBatchQueryPhysical(t *testing.T) {
	job := &models.ExtractionJob{
		TableName: "events",
		Mode:      models.PaginationPhysical,
		BatchSize: 500,
	}
	query, args, err := batchQuery(job, models.InitialCursor(models.PaginationPhysical))
	if err != nil {
		t.Fatalf("batchQuery: %v", err)
	}
	want := `SELECT *, ctid FROM "events" WHERE ctid > $1::tid ORDER BY ctid ASC LIMIT $2`
	if query != want {
		t.Fatalf("query=%q want=%q", query, want)
	}
	if args[0] != "(0,0)" || args[1] != 500 {
		t.Fatalf("args=%v", args)
	}
}

func TestBatchQueryColumnFirstBatchHasNoFilter(t *testing.T) {
	job := &models.ExtractionJob{
		TableName:    "orders",
		Mode:         models.PaginationColumn,
		CursorColumn: "updated_at",
		BatchSize:    1000,
	}
	query, args, err := batchQuery(job, models.InitialCursor(models.PaginationColumn))
	if err != nil {
		t.Fatalf("batchQuery: %v", err)
	}
	want := `SELECT * FROM "orders" ORDER BY "updated_at" ASC LIMIT $1`
	if query != want {
		t.Fatalf("query=%q want=%q", query, want)
	}
	if len(args) != 1 || args[0] != 1000 {
		t.Fatalf("args=%v", args)
	}
}

func TestBatchQueryColumnResumesAfterCursor(t *testing.T) {
	job := &models.ExtractionJob{
		TableName:    "orders",
		Mode:         models.PaginationColumn,
		CursorColumn: "id",
		BatchSize:    1000,
	}
	cur := models.Cursor{Mode: models.PaginationColumn, Value: "2500"}
	query, args, err := batchQuery(job, cur)
	if err != nil {
		t.Fatalf("batchQuery: %v", err)
	}
	want := `SELECT * FROM "orders" WHERE "id" > $1 ORDER BY "id" ASC LIMIT $2`
	if query != want {
		t.Fatalf("query=%q want=%q", query, want)
	}
	if args[0] != "2500" || args[1] != 1000 {
		t.Fatalf("args=%v", args)
	}
}

func TestBatchQueryColumnRequiresCursorColumn(t *testing.T) {
	job := &models.ExtractionJob{
		TableName: "orders",
		Mode:      models.PaginationColumn,
		BatchSize: 1000,
	}
	if _, _, err := batchQuery(job, models.InitialCursor(models.PaginationColumn)); err == nil {
		t.Fatal("expected error when cursor column is missing")
	}
}
