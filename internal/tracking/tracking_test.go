package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pricelab/basiccleaning/internal/artifact"
	"github.com/pricelab/basiccleaning/internal/blobstore"
	"github.com/pricelab/basiccleaning/internal/database"
)

// mockStore allows mocking ArtifactStore.
type mockStore struct {
	MockFetch   func(ctx context.Context, ref string) (*artifact.Download, error)
	MockPublish func(ctx context.Context, req artifact.PublishRequest) (*artifact.Version, error)
}

func (s *mockStore) Fetch(ctx context.Context, ref string) (*artifact.Download, error) {
	return s.MockFetch(ctx, ref)
}

func (s *mockStore) Publish(ctx context.Context, req artifact.PublishRequest) (*artifact.Version, error) {
	return s.MockPublish(ctx, req)
}

func newTestTracker(t *testing.T) (*Tracker, *database.Database, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Connect(filepath.Join(dir, "main.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	blobs, err := blobstore.New(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatal(err)
	}
	store := artifact.New(artifact.Config{
		DB:           db,
		Blobs:        blobs,
		ArtifactsDir: filepath.Join(dir, "artifacts"),
	})
	tracker := &Tracker{DB: db, Store: store, Project: "nyc_airbnb"}
	return tracker, db, dir
}

func TestRunLifecycle(t *testing.T) {
	tracker, db, dir := newTestTracker(t)
	ctx := context.Background()

	run, err := tracker.Init(ctx, "basic_cleaning")
	if err != nil {
		t.Fatal(err)
	}
	if err := run.RecordConfig(map[string]interface{}{"min_price": 10.0}); err != nil {
		t.Fatal(err)
	}
	if err := run.RecordConfig(map[string]interface{}{"max_price": 350.0}); err != nil {
		t.Fatal(err)
	}
	if err := run.SetSummary("rows_kept", 3); err != nil {
		t.Fatal(err)
	}

	fpath := filepath.Join(dir, "sample.csv")
	if err := os.WriteFile(fpath, []byte("id,price\n1,50\n"), 0600); err != nil {
		t.Fatal(err)
	}
	produced, err := run.LogArtifact(ctx, artifact.PublishRequest{
		Name: "sample.csv", Type: "raw_data", Path: fpath,
	})
	if err != nil {
		t.Fatal(err)
	}
	download, err := run.UseArtifact(ctx, "sample.csv:latest")
	if err != nil {
		t.Fatal(err)
	}
	if download.Version.ID != produced.ID {
		t.Fatal("fetched a different version")
	}

	expected := errors.New("mocked error")
	if err := run.Finish(expected); err != nil {
		t.Fatal(err)
	}
	// the second call must be a no-op
	if err := run.Finish(nil); err != nil {
		t.Fatal(err)
	}

	row, err := db.GetRun(run.UUID())
	if err != nil {
		t.Fatal(err)
	}
	if row.State != database.RunStateFailed || row.Failure.String != "mocked error" {
		t.Fatal("unexpected run state", row.State, row.Failure)
	}
	var config map[string]interface{}
	if err := json.Unmarshal([]byte(row.Config), &config); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]interface{}{"min_price": 10.0, "max_price": 350.0}, config); diff != "" {
		t.Fatal(diff)
	}
	if row.Summary != `{"rows_kept":3}` {
		t.Fatal("unexpected summary", row.Summary)
	}

	lineage, err := db.ListLineage(produced.ID)
	if err != nil {
		t.Fatal(err)
	}
	var directions []string
	for _, entry := range lineage {
		directions = append(directions, entry.Lineage.Direction)
	}
	if diff := cmp.Diff([]string{"output", "input"}, directions); diff != "" {
		t.Fatal(diff)
	}
}

func TestRunFinishedSuccessfully(t *testing.T) {
	tracker, db, _ := newTestTracker(t)
	run, err := tracker.Init(context.Background(), "basic_cleaning")
	if err != nil {
		t.Fatal(err)
	}
	if err := run.Finish(nil); err != nil {
		t.Fatal(err)
	}
	row, err := db.GetRun(run.UUID())
	if err != nil {
		t.Fatal(err)
	}
	if row.State != database.RunStateFinished || row.Failure.Valid {
		t.Fatal("unexpected run state", row.State, row.Failure)
	}
}

func TestUseArtifactFailure(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	expected := errors.New("mocked error")
	tracker.Store = &mockStore{
		MockFetch: func(ctx context.Context, ref string) (*artifact.Download, error) {
			return nil, expected
		},
	}
	run, err := tracker.Init(context.Background(), "basic_cleaning")
	if err != nil {
		t.Fatal(err)
	}
	defer run.Finish(nil)
	if _, err := run.UseArtifact(context.Background(), "sample.csv"); !errors.Is(err, expected) {
		t.Fatal("not the error we expected", err)
	}
}

func TestLogArtifactSetsRunID(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	var got artifact.PublishRequest
	tracker.Store = &mockStore{
		MockPublish: func(ctx context.Context, req artifact.PublishRequest) (*artifact.Version, error) {
			got = req
			return &artifact.Version{Name: req.Name}, nil
		},
	}
	run, err := tracker.Init(context.Background(), "basic_cleaning")
	if err != nil {
		t.Fatal(err)
	}
	defer run.Finish(nil)
	if _, err := run.LogArtifact(context.Background(), artifact.PublishRequest{Name: "x.csv"}); err != nil {
		t.Fatal(err)
	}
	if got.RunID != run.row.ID {
		t.Fatal("run id not propagated", got.RunID)
	}
}

func TestInitWithCanceledContext(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := tracker.Init(ctx, "basic_cleaning")
	if !errors.Is(err, context.Canceled) {
		t.Fatal("not the error we expected", err)
	}
	if run != nil {
		t.Fatal("expected nil run")
	}
}
