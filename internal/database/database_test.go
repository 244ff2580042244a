package database

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	d, err := Connect(filepath.Join(t.TempDir(), "main.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestConnect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.sqlite3")
	d, err := Connect(path)
	if err != nil {
		t.Fatal(err)
	}
	d.Close()

	// reconnecting must not attempt to run the migrations again
	d, err = Connect(path)
	if err != nil {
		t.Fatal(err)
	}
	d.Close()
}

func TestRunLifecycle(t *testing.T) {
	d := newTestDatabase(t)
	run, err := d.CreateRun("nyc_airbnb", "basic_cleaning", "run-0001")
	if err != nil {
		t.Fatal(err)
	}
	if run.ID == 0 || run.State != RunStateRunning {
		t.Fatal("unexpected run", run)
	}
	if err := d.UpdateRunConfig(run, `{"min_price":10}`); err != nil {
		t.Fatal(err)
	}
	if err := d.UpdateRunSummary(run, `{"rows_kept":3}`); err != nil {
		t.Fatal(err)
	}
	if err := d.FinishRun(run, "mocked failure"); err != nil {
		t.Fatal(err)
	}

	stored, err := d.GetRun("run-0001")
	if err != nil {
		t.Fatal(err)
	}
	if stored.State != RunStateFailed {
		t.Fatal("unexpected state", stored.State)
	}
	if !stored.Failure.Valid || stored.Failure.String != "mocked failure" {
		t.Fatal("unexpected failure", stored.Failure)
	}
	if stored.Config != `{"min_price":10}` || stored.Summary != `{"rows_kept":3}` {
		t.Fatal("unexpected config or summary", stored.Config, stored.Summary)
	}

	runs, err := d.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].UUID != "run-0001" {
		t.Fatal("unexpected runs", runs)
	}
}

func TestGetRunNotFound(t *testing.T) {
	d := newTestDatabase(t)
	_, err := d.GetRun("nonexistent")
	if !errors.Is(err, ErrNoSuchRecord) {
		t.Fatal("not the error we expected", err)
	}
}

func TestPublishVersion(t *testing.T) {
	d := newTestDatabase(t)
	run, err := d.CreateRun("nyc_airbnb", "basic_cleaning", "run-0001")
	if err != nil {
		t.Fatal(err)
	}

	first, err := d.PublishVersion(PublishParams{
		Name:        "clean_sample.csv",
		Type:        "clean_sample",
		Description: "Data with outliers and null values removed",
		FileName:    "clean_sample.csv",
		Digest:      "aaaa",
		Size:        10,
		RunID:       run.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !first.Created || first.Version.Index != 0 {
		t.Fatal("unexpected first version", first)
	}

	t.Run("same content reuses the latest version", func(t *testing.T) {
		again, err := d.PublishVersion(PublishParams{
			Name:     "clean_sample.csv",
			Type:     "clean_sample",
			FileName: "clean_sample.csv",
			Digest:   "aaaa",
			Size:     10,
		})
		if err != nil {
			t.Fatal(err)
		}
		if again.Created || again.Version.ID != first.Version.ID {
			t.Fatal("expected the version to be reused", again)
		}
	})

	t.Run("new content creates v1 and moves latest", func(t *testing.T) {
		second, err := d.PublishVersion(PublishParams{
			Name:     "clean_sample.csv",
			Type:     "clean_sample",
			FileName: "clean_sample.csv",
			Digest:   "bbbb",
			Size:     12,
			Aliases:  []string{"reference"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !second.Created || second.Version.Index != 1 {
			t.Fatal("unexpected second version", second)
		}
		_, latest, err := d.ResolveVersion("clean_sample.csv", AliasLatest)
		if err != nil {
			t.Fatal(err)
		}
		if latest.ID != second.Version.ID {
			t.Fatal("latest does not point to v1")
		}
		aliases, err := d.ListAliases(second.Version.ID)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"latest", "reference"}, aliases); diff != "" {
			t.Fatal(diff)
		}
		_, v0, err := d.ResolveVersion("clean_sample.csv", "v0")
		if err != nil {
			t.Fatal(err)
		}
		if v0.Digest != "aaaa" {
			t.Fatal("unexpected v0", v0)
		}
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := d.PublishVersion(PublishParams{
			Name:     "clean_sample.csv",
			Type:     "raw_data",
			FileName: "clean_sample.csv",
			Digest:   "cccc",
		})
		if !errors.Is(err, ErrTypeMismatch) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("alias clashing with version names", func(t *testing.T) {
		_, err := d.PublishVersion(PublishParams{
			Name:     "clean_sample.csv",
			Type:     "clean_sample",
			FileName: "clean_sample.csv",
			Digest:   "dddd",
			Aliases:  []string{"v7"},
		})
		if err == nil {
			t.Fatal("expected an error here")
		}
	})

	t.Run("lineage", func(t *testing.T) {
		entries, err := d.ListLineage(first.Version.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Fatal("expected one lineage entry", entries)
		}
		if entries[0].Run.UUID != "run-0001" || entries[0].Lineage.Direction != DirectionOutput {
			t.Fatal("unexpected lineage", entries[0])
		}
	})

	t.Run("list artifacts", func(t *testing.T) {
		artifacts, err := d.ListArtifacts()
		if err != nil {
			t.Fatal(err)
		}
		if len(artifacts) != 1 || artifacts[0].Latest.Index != 1 {
			t.Fatal("unexpected artifacts", artifacts)
		}
		versions, err := d.ListVersions(artifacts[0].Artifact.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(versions) != 2 {
			t.Fatal("expected two versions", versions)
		}
	})
}

func TestResolveVersionNotFound(t *testing.T) {
	d := newTestDatabase(t)
	if _, _, err := d.ResolveVersion("sample.csv", "latest"); !errors.Is(err, ErrNoSuchRecord) {
		t.Fatal("not the error we expected", err)
	}
	_, err := d.PublishVersion(PublishParams{
		Name: "sample.csv", Type: "raw_data", FileName: "sample.csv", Digest: "aaaa",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, alias := range []string{"v1", "production"} {
		if _, _, err := d.ResolveVersion("sample.csv", alias); !errors.Is(err, ErrNoSuchRecord) {
			t.Fatal("not the error we expected", alias, err)
		}
	}
}
