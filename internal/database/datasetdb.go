package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/phishguard/internal/classifier"
	"github.com/nao1215/phishguard/internal/model"
)

// FileName is the database file name inside the data directory.
const FileName = "phishguard.db"

// ErrDatabaseNotFound is returned by Open when the database does not exist
// and CreateIfNotExists is false.
var ErrDatabaseNotFound = errors.New("database not found")

// DatasetDB stores labeled training samples.
type DatasetDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures DatasetDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a DatasetDB in dbDir.
func Open(dbDir string, opts Options) (*DatasetDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s (run \"phishguard dataset import\" first)", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ddb := &DatasetDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := ddb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return ddb, nil
}

// Close closes the database connection.
func (ddb *DatasetDB) Close() error {
	return ddb.db.Close()
}

// Path returns the database file path.
func (ddb *DatasetDB) Path() string {
	return ddb.dbPath
}

func (ddb *DatasetDB) createTables() error {
	schema := `
	-- One row per distinct URL; re-importing a URL replaces its label
	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL,
		source TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_samples_label ON samples(label);

	-- Import log
	CREATE TABLE IF NOT EXISTS imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		sample_count INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := ddb.db.ExecContext(context.Background(), schema)
	return err
}

// ImportSamples stores samples in a single transaction and returns how many
// rows were written. Existing URLs take the new label.
func (ddb *DatasetDB) ImportSamples(ctx context.Context, samples []classifier.Sample, source string) (int, error) {
	if len(samples) == 0 {
		return 0, classifier.ErrEmptyDataset
	}

	tx, err := ddb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO samples (url, label, source, imported_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		label = excluded.label,
		source = excluded.source,
		imported_at = excluded.imported_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	written := 0
	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx, s.URL, s.Label.String(), source, now); err != nil {
			return 0, fmt.Errorf("failed to insert sample %q: %w", s.URL, err)
		}
		written++
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO imports (source, sample_count, fingerprint, imported_at) VALUES (?, ?, ?, ?)`,
		source, written, classifier.Fingerprint(samples), now,
	); err != nil {
		return 0, fmt.Errorf("failed to record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return written, nil
}

// Name identifies the store as a training source.
func (ddb *DatasetDB) Name() string {
	return "sqlite:" + ddb.dbPath
}

// Samples returns every stored sample in insertion order.
// It implements classifier.Source.
func (ddb *DatasetDB) Samples(ctx context.Context) ([]classifier.Sample, error) {
	rows, err := ddb.db.QueryContext(ctx, `SELECT url, label FROM samples ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []classifier.Sample
	for rows.Next() {
		var url, labelStr string
		if err := rows.Scan(&url, &labelStr); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		label, err := model.ParseLabel(labelStr)
		if err != nil {
			continue
		}
		samples = append(samples, classifier.Sample{URL: url, Label: label})
	}
	return samples, rows.Err()
}

// ImportRecord is one entry of the import log.
type ImportRecord struct {
	Source      string    `json:"source"`
	Count       int       `json:"count"`
	Fingerprint string    `json:"fingerprint"`
	ImportedAt  time.Time `json:"imported_at"`
}

// Stats summarizes the stored dataset.
type Stats struct {
	Total    int            `json:"total"`
	Phishing int            `json:"phishing"`
	Safe     int            `json:"safe"`
	Imports  []ImportRecord `json:"imports"`
}

// Stats returns sample counts per label and the import log, newest first.
func (ddb *DatasetDB) Stats(ctx context.Context) (*Stats, error) {
	rows, err := ddb.db.QueryContext(ctx, `SELECT label, COUNT(*) FROM samples GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to count samples: %w", err)
	}
	defer rows.Close()

	stats := &Stats{}
	for rows.Next() {
		var labelStr string
		var count int
		if err := rows.Scan(&labelStr, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		stats.Total += count
		label, err := model.ParseLabel(labelStr)
		if err != nil {
			continue
		}
		if label.IsPhishing() {
			stats.Phishing += count
		} else {
			stats.Safe += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	imports, err := ddb.db.QueryContext(ctx, `
	SELECT source, sample_count, fingerprint, imported_at
	FROM imports
	ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query imports: %w", err)
	}
	defer imports.Close()

	for imports.Next() {
		var rec ImportRecord
		var importedAt string
		if err := imports.Scan(&rec.Source, &rec.Count, &rec.Fingerprint, &importedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		rec.ImportedAt = parseTimestamp(importedAt)
		stats.Imports = append(stats.Imports, rec)
	}
	return stats, imports.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
