package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"target-sweep/internal/clean"
)

// DeletionDB manages the SQLite database for the deletion audit trail
type DeletionDB struct {
	db *sql.DB
}

// DeletionRecord represents a single removal or failure event
type DeletionRecord struct {
	ID           int64
	RunID        string
	Timestamp    time.Time
	Action       string // DELETE, WARN or FAIL
	Target       string
	Path         string
	FileName     string
	ObjectType   string
	Size         int64
	FailureKind  string
	ErrorMessage string
	CreatedAt    time.Time
}

// RunRecord summarizes one invocation
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	BaseDir    string
	Targets    int
	Removed    int
	BytesFreed int64
	Warnings   int
	Result     string // ok, failed, skipped
}

// NewDeletionDB creates a new database connection and initializes schema
func NewDeletionDB(dbPath string) (*DeletionDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Test connection by executing a simple query instead of Ping()
	// This ensures the database file is created if it doesn't exist
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// Enable WAL mode so the query tool can read during a run
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	ddb := &DeletionDB{db: db}
	if err = ddb.initSchema(); err != nil {
		return nil, err
	}

	return ddb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *DeletionDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deletions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		target TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		object_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		failure_kind TEXT,
		error_message TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_run_id ON deletions(run_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON deletions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON deletions(action);
	CREATE INDEX IF NOT EXISTS idx_path ON deletions(path);
	CREATE INDEX IF NOT EXISTS idx_size ON deletions(size);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		base_dir TEXT NOT NULL,
		targets INTEGER NOT NULL,
		removed INTEGER NOT NULL,
		bytes_freed INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		result TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordEvent inserts a removal or failure event into the database
func (d *DeletionDB) RecordEvent(runID string, ev clean.Event) error {
	var errMsg string
	if ev.Err != nil {
		errMsg = ev.Err.Error()
	}

	query := `
	INSERT INTO deletions (
		run_id, timestamp, action, target, path, file_name,
		object_type, size, failure_kind, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(
		query,
		runID,
		ev.Time,
		string(ev.Action),
		ev.Target,
		ev.Path,
		filepath.Base(ev.Path),
		ev.Kind.String(),
		ev.Size,
		string(ev.Failure),
		errMsg,
	)

	return err
}

// RecordRun stores the summary of a finished run
func (d *DeletionDB) RecordRun(r RunRecord) error {
	_, err := d.db.Exec(`
	INSERT OR REPLACE INTO runs (
		run_id, started_at, finished_at, base_dir, targets,
		removed, bytes_freed, warnings, result
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID, r.StartedAt, r.FinishedAt, r.BaseDir, r.Targets,
		r.Removed, r.BytesFreed, r.Warnings, r.Result,
	)
	return err
}

// ForRun returns a clean.Recorder writing events under runID
func (d *DeletionDB) ForRun(runID string) clean.Recorder {
	return &runRecorder{db: d, runID: runID}
}

type runRecorder struct {
	db    *DeletionDB
	runID string
}

func (r *runRecorder) Record(ev clean.Event) error {
	return r.db.RecordEvent(r.runID, ev)
}

// Close closes the database connection
func (d *DeletionDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *DeletionDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// GetDatabaseStats returns database statistics
func (d *DeletionDB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalRecords, totalRuns int64
	if err := d.db.QueryRow("SELECT COUNT(*) FROM deletions").Scan(&totalRecords); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&totalRuns); err != nil {
		return nil, err
	}
	stats["total_records"] = totalRecords
	stats["total_runs"] = totalRuns

	// Database size
	var pageCount, pageSize int64
	if err := d.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats["database_size_bytes"] = pageCount * pageSize

	// Date range
	var oldest, newest sql.NullString
	err := d.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM deletions").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if t, ok := parseTimestamp(oldest); ok {
		stats["oldest_record"] = t
	}
	if t, ok := parseTimestamp(newest); ok {
		stats["newest_record"] = t
	}

	return stats, nil
}

// timestampLayouts are the forms SQLite hands back for aggregated DATETIME columns
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTimestamp(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
