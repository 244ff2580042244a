package artifact

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pricelab/basiccleaning/internal/blobstore"
	"github.com/pricelab/basiccleaning/internal/database"
)

const sampleCSV = "id,price,last_review\n1,50,2019-05-21\n2,1000,2019-06-01\n"

type testEnv struct {
	store *Store
	db    *database.Database
	dir   string
}

func newTestEnv(t *testing.T) *testEnv {
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
	store := New(Config{
		DB:           db,
		Blobs:        blobs,
		ArtifactsDir: filepath.Join(dir, "artifacts"),
	})
	return &testEnv{store: store, db: db, dir: dir}
}

func (env *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	fpath := filepath.Join(env.dir, name)
	if err := os.WriteFile(fpath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return fpath
}

func TestPublishAndFetch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fpath := env.writeFile(t, "sample.csv", sampleCSV)

	version, err := env.store.Publish(ctx, PublishRequest{
		Name:        "sample.csv",
		Type:        "raw_data",
		Description: "Raw listings",
		Path:        fpath,
	})
	if err != nil {
		t.Fatal(err)
	}
	if version.Ref() != "sample.csv:v0" {
		t.Fatal("unexpected ref", version.Ref())
	}
	if diff := cmp.Diff([]string{"latest"}, version.Aliases); diff != "" {
		t.Fatal(diff)
	}

	// the source file may go away once published
	if err := os.Remove(fpath); err != nil {
		t.Fatal(err)
	}

	for _, ref := range []string{"sample.csv", "sample.csv:latest", "sample.csv:v0"} {
		download, err := env.store.Fetch(ctx, ref)
		if err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(download.Path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != sampleCSV {
			t.Fatal("unexpected content", string(data))
		}
		if filepath.Base(download.Path) != "sample.csv" {
			t.Fatal("unexpected file name", download.Path)
		}
	}
}

func TestFetchNotFound(t *testing.T) {
	env := newTestEnv(t)
	for _, ref := range []string{"nonexistent.csv:latest", "", "sample.csv:v9"} {
		_, err := env.store.Fetch(context.Background(), ref)
		if !errors.Is(err, ErrNotFound) {
			t.Fatal("not the error we expected", ref, err)
		}
	}
	if _, err := os.Stat(filepath.Join(env.dir, "artifacts")); !os.IsNotExist(err) {
		t.Fatal("expected no artifacts directory", err)
	}
}

func TestFetchMissingBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fpath := env.writeFile(t, "sample.csv", sampleCSV)
	version, err := env.store.Publish(ctx, PublishRequest{Name: "sample.csv", Type: "raw_data", Path: fpath})
	if err != nil {
		t.Fatal(err)
	}
	blobPath, err := env.store.blobs.Path(version.Digest)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(blobPath); err != nil {
		t.Fatal(err)
	}
	if _, err := env.store.Fetch(ctx, "sample.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatal("not the error we expected", err)
	}
}

func TestPublishVersioning(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fpath := env.writeFile(t, "clean_sample.csv", sampleCSV)
	req := PublishRequest{Name: "clean_sample.csv", Type: "clean_sample", Path: fpath}

	first, err := env.store.Publish(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	again, err := env.store.Publish(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID {
		t.Fatal("expected the same version for the same content")
	}

	env.writeFile(t, "clean_sample.csv", sampleCSV+"3,70,2019-07-01\n")
	req.Aliases = []string{"reference"}
	second, err := env.store.Publish(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if second.Tag() != "v1" {
		t.Fatal("unexpected tag", second.Tag())
	}

	versions, err := env.store.Versions(ctx, "clean_sample.csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 {
		t.Fatal("expected two versions", len(versions))
	}
	if diff := cmp.Diff([]string{"latest", "reference"}, versions[1].Aliases); diff != "" {
		t.Fatal(diff)
	}
	if len(versions[0].Aliases) != 0 {
		t.Fatal("v0 should have lost the latest alias", versions[0].Aliases)
	}

	list, err := env.store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Tag() != "v1" {
		t.Fatal("unexpected list", list)
	}
}

func TestPublishFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fpath := env.writeFile(t, "sample.csv", sampleCSV)

	cases := map[string]PublishRequest{
		"missing file":   {Name: "sample.csv", Type: "raw_data", Path: filepath.Join(env.dir, "nonexistent.csv")},
		"empty name":     {Name: "", Type: "raw_data", Path: fpath},
		"name with path": {Name: "a/b.csv", Type: "raw_data", Path: fpath},
		"empty type":     {Name: "sample.csv", Type: "", Path: fpath},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := env.store.Publish(ctx, req); !errors.Is(err, ErrPublish) {
				t.Fatal("not the error we expected", err)
			}
		})
	}

	t.Run("type mismatch", func(t *testing.T) {
		if _, err := env.store.Publish(ctx, PublishRequest{Name: "sample.csv", Type: "raw_data", Path: fpath}); err != nil {
			t.Fatal(err)
		}
		_, err := env.store.Publish(ctx, PublishRequest{Name: "sample.csv", Type: "clean_sample", Path: fpath})
		if !errors.Is(err, ErrPublish) || !errors.Is(err, database.ErrTypeMismatch) {
			t.Fatal("not the error we expected", err)
		}
	})
}

func TestPublishWithProgressAndLineage(t *testing.T) {
	env := newTestEnv(t)
	progress := &bytes.Buffer{}
	env.store.progress = progress
	ctx := context.Background()
	run, err := env.db.CreateRun("nyc_airbnb", "basic_cleaning", "run-0001")
	if err != nil {
		t.Fatal(err)
	}
	fpath := env.writeFile(t, "sample.csv", sampleCSV)
	version, err := env.store.Publish(ctx, PublishRequest{
		Name: "sample.csv", Type: "raw_data", Path: fpath, RunID: run.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.store.Fetch(ctx, "sample.csv"); err != nil {
		t.Fatal(err)
	}
	if progress.Len() <= 0 {
		t.Fatal("expected some progress output")
	}
	entries, err := env.store.Lineage(ctx, version)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].RunUUID != "run-0001" || entries[0].Direction != database.DirectionOutput {
		t.Fatal("unexpected lineage", entries)
	}
}

func TestCanceledContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := env.store.Fetch(ctx, "sample.csv"); !errors.Is(err, context.Canceled) {
		t.Fatal("not the error we expected", err)
	}
	if _, err := env.store.Publish(ctx, PublishRequest{}); !errors.Is(err, context.Canceled) {
		t.Fatal("not the error we expected", err)
	}
}
