package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/phishguard/internal/classifier"
	"github.com/nao1215/phishguard/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *DatasetDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Fatalf("expected ErrDatabaseNotFound, got %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestImportSamples tests storing and reading back samples.
func TestImportSamples(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	samples := []classifier.Sample{
		{URL: "paypal-login-verify.tk", Label: model.LabelPhishing},
		{URL: "google.com", Label: model.LabelSafe},
		{URL: "github.com", Label: model.LabelSafe},
	}

	n, err := db.ImportSamples(ctx, samples, "first.csv")
	if err != nil {
		t.Fatalf("ImportSamples failed: %v", err)
	}
	if n != 3 {
		t.Errorf("wrote %d rows, expected 3", n)
	}

	// Re-importing a URL replaces its label.
	if _, err := db.ImportSamples(ctx, []classifier.Sample{
		{URL: "github.com", Label: model.LabelPhishing},
	}, "second.csv"); err != nil {
		t.Fatalf("second import failed: %v", err)
	}

	got, err := db.Samples(ctx)
	if err != nil {
		t.Fatalf("Samples failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d samples, expected 3", len(got))
	}
	if got[2].URL != "github.com" || got[2].Label != model.LabelPhishing {
		t.Errorf("expected relabeled github.com, got %+v", got[2])
	}

	t.Run("empty import is rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := db.ImportSamples(ctx, nil, "empty.csv"); !errors.Is(err, classifier.ErrEmptyDataset) {
			t.Errorf("expected ErrEmptyDataset, got %v", err)
		}
	})
}

// TestStats tests dataset statistics and the import log.
func TestStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed on empty db: %v", err)
	}
	if stats.Total != 0 || len(stats.Imports) != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	samples := []classifier.Sample{
		{URL: "a.tk", Label: model.LabelPhishing},
		{URL: "b.ml", Label: model.LabelPhishing},
		{URL: "google.com", Label: model.LabelSafe},
	}
	if _, err := db.ImportSamples(ctx, samples, "phishing.csv"); err != nil {
		t.Fatalf("ImportSamples failed: %v", err)
	}

	stats, err = db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Phishing != 2 || stats.Safe != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if len(stats.Imports) != 1 {
		t.Fatalf("expected one import record, got %d", len(stats.Imports))
	}
	rec := stats.Imports[0]
	if rec.Source != "phishing.csv" || rec.Count != 3 || rec.Fingerprint != classifier.Fingerprint(samples) {
		t.Errorf("unexpected import record: %+v", rec)
	}
	if time.Since(rec.ImportedAt) > time.Minute {
		t.Errorf("unexpected import time: %v", rec.ImportedAt)
	}
}

// TestDatasetDBAsSource tests that the store trains the local classifier.
func TestDatasetDBAsSource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)
	if _, err := db.ImportSamples(ctx, []classifier.Sample{
		{URL: "paypal-login-verify.tk", Label: model.LabelPhishing},
		{URL: "google.com", Label: model.LabelSafe},
	}, "inline"); err != nil {
		t.Fatalf("ImportSamples failed: %v", err)
	}

	var src classifier.Source = db
	local := classifier.NewLocal(classifier.WithSources(src))
	info := local.Warm(ctx)
	if info.Source != db.Name() || info.Samples != 2 {
		t.Errorf("unexpected info: %+v", info)
	}
}

// TestParseTimestamp tests timestamp parsing with various formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		wantZero bool
	}{
		{"RFC3339", "2025-01-02T03:04:05Z", false},
		{"SQLite default", "2025-01-02 03:04:05", false},
		{"with millis", "2025-01-02 03:04:05.123", false},
		{"garbage", "yesterday", true},
		{"empty", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tc.input); got.IsZero() != tc.wantZero {
				t.Errorf("parseTimestamp(%q) = %v", tc.input, got)
			}
		})
	}
}
