package schema

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/notification"
)

type fakeSchemaRepo struct {
	current  *models.SchemaVersion
	versions []*models.SchemaVersion
}

func (f *fakeSchemaRepo) PersistIfChanged(_ context.Context, sourceID int64, snap models.Snapshot, hash string) (*models.SchemaVersion, bool, error) {
	if f.current != nil && f.current.Hash == hash {
		return f.current, false, nil
	}
	next := 1
	if f.current != nil {
		next = f.current.Version + 1
		f.current.IsCurrent = false
	}
	v := &models.SchemaVersion{
		ID:        "v",
		SourceID:  sourceID,
		Version:   next,
		Hash:      hash,
		IsCurrent: true,
		Snapshot:  snap,
	}
	f.current = v
	f.versions = append(f.versions, v)
	return v, true, nil
}

func (f *fakeSchemaRepo) GetCurrent(context.Context, int64) (*models.SchemaVersion, error) {
	return f.current, nil
}

func (f *fakeSchemaRepo) GetVersion(_ context.Context, _ int64, version int) (*models.SchemaVersion, error) {
	for _, v := range f.versions {
		if v.Version == version {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeSchemaRepo) ListVersions(context.Context, int64) ([]*models.SchemaVersion, error) {
	return f.versions, nil
}

type fakeSnapshotter struct {
	snap models.Snapshot
}

func (f *fakeSnapshotter) Snapshot(context.Context) (models.Snapshot, error) { return f.snap, nil }
func (f *fakeSnapshotter) Close() error                                      { return nil }

type fakeNotifier struct {
	drifts    int
	summaries []string
}

func (f *fakeNotifier) Publish(context.Context, notification.Event) (models.Notification, error) {
	return models.Notification{}, nil
}
func (f *fakeNotifier) NotifyExtractionStarted(context.Context, string, string) error { return nil }
func (f *fakeNotifier) NotifyExtractionCompleted(context.Context, string, string, int64) error {
	return nil
}
func (f *fakeNotifier) NotifyExtractionFailed(context.Context, string, string, string) error {
	return nil
}
func (f *fakeNotifier) NotifySchemaDrift(_ context.Context, _ int64, _ int, summary string) error {
	f.drifts++
	f.summaries = append(f.summaries, summary)
	return nil
}
func (f *fakeNotifier) ListRecent(context.Context, int) ([]models.Notification, error) {
	return nil, nil
}
func (f *fakeNotifier) MarkRead(context.Context, string) (models.Notification, error) {
	return models.Notification{}, nil
}

func newTestService(repo *fakeSchemaRepo, notifier notification.Service, snap models.Snapshot) *Service {
	svc := NewService(repo, notifier, zerolog.Nop())
	svc.inspector = func(*models.Source) (snapshotter, error) {
		return &fakeSnapshotter{snap: snap}, nil
	}
	return svc
}

func TestCaptureSnapshotBaseline(t *testing.T) {
	repo := &fakeSchemaRepo{}
	notifier := &fakeNotifier{}
	snap := snapshotWith(map[string]models.TableSchema{
		"users": table("users", col("id", "bigint")),
	})
	svc := newTestService(repo, notifier, snap)

	result, err := svc.CaptureSnapshot(context.Background(), &models.Source{ID: 1})
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}
	if !result.Changed {
		t.Fatal("first capture should create a version")
	}
	if result.Version.Version != 1 {
		t.Fatalf("version=%d want=1", result.Version.Version)
	}
	// The baseline is not drift.
	if notifier.drifts != 0 {
		t.Fatalf("drift notifications=%d want=0", notifier.drifts)
	}
	if result.Diff != nil {
		t.Fatal("baseline capture should carry no diff")
	}
}

func TestCaptureSnapshotUnchangedIsNoOp(t *testing.T) {
	repo := &fakeSchemaRepo{}
	notifier := &fakeNotifier{}
	snap := snapshotWith(map[string]models.TableSchema{
		"users": table("users", col("id", "bigint")),
	})
	svc := newTestService(repo, notifier, snap)

	if _, err := svc.CaptureSnapshot(context.Background(), &models.Source{ID: 1}); err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}
	result, err := svc.CaptureSnapshot(context.Background(), &models.Source{ID: 1})
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}
	if result.Changed {
		t.Fatal("unchanged snapshot must not create a version")
	}
	if result.Version.Version != 1 {
		t.Fatalf("version=%d want=1", result.Version.Version)
	}
	if len(repo.versions) != 1 {
		t.Fatalf("stored versions=%d want=1", len(repo.versions))
	}
}

func TestCaptureSnapshotDriftNotifies(t *testing.T) {
	repo := &fakeSchemaRepo{}
	notifier := &fakeNotifier{}
	first := snapshotWith(map[string]models.TableSchema{
		"users": table("users", col("id", "bigint")),
	})
	svc := newTestService(repo, notifier, first)

	if _, err := svc.CaptureSnapshot(context.Background(), &models.Source{ID: 1}); err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}

	second := snapshotWith(map[string]models.TableSchema{
		"users":  table("users", col("id", "bigint")),
		"orders": table("orders", col("id", "bigint")),
	})
	svc.inspector = func(*models.Source) (snapshotter, error) {
		return &fakeSnapshotter{snap: second}, nil
	}

	result, err := svc.CaptureSnapshot(context.Background(), &models.Source{ID: 1})
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}
	if !result.Changed {
		t.Fatal("changed snapshot should create a version")
	}
	if result.Version.Version != 2 {
		t.Fatalf("version=%d want=2", result.Version.Version)
	}
	if result.Diff == nil || len(result.Diff.AddedTables) != 1 {
		t.Fatalf("diff=%+v want one added table", result.Diff)
	}
	if notifier.drifts != 1 {
		t.Fatalf("drift notifications=%d want=1", notifier.drifts)
	}
}
