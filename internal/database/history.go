package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pks0715/seggy/internal/model"
)

// DBFileName is the name of the history database file.
const DBFileName = "seggy.db"

// DefaultListLimit is the number of runs returned by ListRuns when the
// caller passes a non-positive limit.
const DefaultListLimit = 20

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB provides SQLite-based storage for run metadata.
//
// Design decision: We store metadata only. Uploaded documents and reports
// may be confidential, while counts, timings and extracted headline figures
// are enough to compare runs over time.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run with --save-history first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw prevents creating new files; mode=rwc allows creation.
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

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		dd_type TEXT NOT NULL,
		report_focus TEXT NOT NULL,
		checklist_type TEXT NOT NULL,
		total_files INTEGER NOT NULL,
		batches_processed INTEGER NOT NULL,
		batches_succeeded INTEGER NOT NULL,
		synthesized INTEGER NOT NULL,
		processing_ms INTEGER NOT NULL,
		upload_fingerprint TEXT NOT NULL,
		summary_json TEXT,
		batches_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(upload_fingerprint);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// BatchRecord is the stored outcome of one batch.
type BatchRecord struct {
	Index     int    `json:"index"`
	Files     int    `json:"files"`
	Succeeded bool   `json:"succeeded"`
	Backend   string `json:"backend,omitempty"`
}

// RunRecord represents a stored run.
type RunRecord struct {
	ID               string
	Timestamp        time.Time
	Classification   model.Classification
	TotalFiles       int
	BatchesProcessed int
	BatchesSucceeded int
	Synthesized      bool
	ProcessingTime   time.Duration
	Fingerprint      string
	Summary          model.FinancialSummary
	Batches          []BatchRecord
}

// NewRunRecord extracts the storable metadata of an analysis.
func NewRunRecord(a *model.Analysis) *RunRecord {
	batches := make([]BatchRecord, len(a.Results))
	for i, r := range a.Results {
		batches[i] = BatchRecord{
			Index:     r.BatchIndex,
			Files:     r.FileCount(),
			Succeeded: r.Succeeded,
			Backend:   r.Backend,
		}
	}

	return &RunRecord{
		ID:               a.RunID,
		Timestamp:        a.StartedAt,
		Classification:   a.Classification,
		TotalFiles:       len(a.UploadedNames),
		BatchesProcessed: len(a.Batches),
		BatchesSucceeded: a.SucceededBatches(),
		Synthesized:      a.Report != nil && a.Report.Header.Synthesized,
		ProcessingTime:   a.Elapsed,
		Fingerprint:      Fingerprint(a.UploadedNames),
		Summary:          a.Summary,
		Batches:          batches,
	}
}

// Fingerprint returns the hex SHA3-256 of the sorted file names.
// Two runs over the same set of files share a fingerprint regardless of
// upload order.
func Fingerprint(names []string) string {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	sum := sha3.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])
}

// SaveRun stores the metadata of a finished analysis.
func (hdb *HistoryDB) SaveRun(ctx context.Context, a *model.Analysis) error {
	return hdb.InsertRun(ctx, NewRunRecord(a))
}

// InsertRun inserts a run record. Saving the same run twice is an error.
func (hdb *HistoryDB) InsertRun(ctx context.Context, rec *RunRecord) error {
	summaryJSON, err := json.Marshal(rec.Summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}
	batchesJSON, err := json.Marshal(rec.Batches)
	if err != nil {
		return fmt.Errorf("failed to serialize batches: %w", err)
	}

	query := `
	INSERT INTO runs (id, timestamp, dd_type, report_focus, checklist_type,
		total_files, batches_processed, batches_succeeded, synthesized,
		processing_ms, upload_fingerprint, summary_json, batches_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	synthesized := 0
	if rec.Synthesized {
		synthesized = 1
	}

	_, err = hdb.db.ExecContext(ctx, query,
		rec.ID,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Classification.DDType,
		rec.Classification.ReportFocus,
		rec.Classification.ChecklistType,
		rec.TotalFiles,
		rec.BatchesProcessed,
		rec.BatchesSucceeded,
		synthesized,
		rec.ProcessingTime.Milliseconds(),
		rec.Fingerprint,
		string(summaryJSON),
		string(batchesJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// runColumns is the column list shared by every run query.
const runColumns = `id, timestamp, dd_type, report_focus, checklist_type,
	total_files, batches_processed, batches_succeeded, synthesized,
	processing_ms, upload_fingerprint, summary_json, batches_json`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one run row.
func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var timestamp string
	var synthesized int
	var processingMS int64
	var summaryJSON, batchesJSON sql.NullString

	err := row.Scan(
		&rec.ID,
		&timestamp,
		&rec.Classification.DDType,
		&rec.Classification.ReportFocus,
		&rec.Classification.ChecklistType,
		&rec.TotalFiles,
		&rec.BatchesProcessed,
		&rec.BatchesSucceeded,
		&synthesized,
		&processingMS,
		&rec.Fingerprint,
		&summaryJSON,
		&batchesJSON,
	)
	if err != nil {
		return nil, err
	}

	rec.Timestamp = parseTimestamp(timestamp)
	rec.Synthesized = synthesized != 0
	rec.ProcessingTime = time.Duration(processingMS) * time.Millisecond

	// Malformed JSON leaves the zero value; counts are still usable.
	if summaryJSON.Valid && summaryJSON.String != "" {
		_ = json.Unmarshal([]byte(summaryJSON.String), &rec.Summary) //nolint:errcheck // best effort
	}
	if batchesJSON.Valid && batchesJSON.String != "" {
		_ = json.Unmarshal([]byte(batchesJSON.String), &rec.Batches) //nolint:errcheck // best effort
	}

	return &rec, nil
}

// GetRun retrieves a run by ID. It returns ErrRunNotFound when absent.
func (hdb *HistoryDB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	rec, err := scanRun(hdb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY timestamp DESC LIMIT ?`
	return hdb.queryRuns(ctx, query, limit)
}

// RunsByFingerprint returns every run over the same set of file names,
// newest first.
func (hdb *HistoryDB) RunsByFingerprint(ctx context.Context, fingerprint string) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE upload_fingerprint = ? ORDER BY timestamp DESC`
	return hdb.queryRuns(ctx, query, fingerprint)
}

// queryRuns runs a multi-row query.
func (hdb *HistoryDB) queryRuns(ctx context.Context, query string, args ...any) ([]RunRecord, error) {
	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		results = append(results, *rec)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,      // Format written by InsertRun
	time.RFC3339,          // Full RFC3339 format
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05", // ISO 8601 without timezone
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
