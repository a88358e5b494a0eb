package journal

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema history: version 0 predates migrations, version 1 added the
// segment status index.
const currentSchemaVersion = 1

// ErrNotFound is returned when a run token has no row.
var ErrNotFound = errors.New("journal: run not found")

// RunKind distinguishes what a journaled scan computes.
type RunKind string

const (
	// KindCheck verifies convergence over the range.
	KindCheck RunKind = "check"

	// KindRecords tracks step-count records over the range.
	KindRecords RunKind = "records"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusDone    RunStatus = "done"
	StatusFailed  RunStatus = "failed"
)

// SegmentStatus is the lifecycle state of one segment of a run.
type SegmentStatus string

const (
	SegmentPending SegmentStatus = "pending"
	SegmentDone    SegmentStatus = "done"
	SegmentFailed  SegmentStatus = "failed"
)

// Run is one journaled scan: a range, how it was cut up, and where it
// stands.
type Run struct {
	Token     string
	Kind      RunKind
	Start     uint64
	Stop      uint64
	Workers   int
	Segments  int
	Status    RunStatus
	FailValue *uint64
	CreatedAt string
	Seq       int64
}

// Segment is one contiguous piece of a run's range.
type Segment struct {
	RunToken  string
	Idx       int
	Start     uint64
	Stop      uint64
	Status    SegmentStatus
	Max       *SegmentMax
	FailValue *uint64
}

// SegmentMax is the record-holding value of a finished records segment.
type SegmentMax struct {
	Value uint64
	Steps uint64
}

// RecordRow is one stored record.
type RecordRow struct {
	Value uint64
	Steps uint64
}

// Journal is a handle on one scan database.
type Journal struct {
	db *sql.DB
}

// Open opens the SQLite database at path, creating it when absent, and
// brings it to the current schema version. WAL with NORMAL synchronous
// keeps readers unblocked during a scan's writes; the busy timeout covers
// the handoff between a writer and a concurrent `journal` inspection.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer, and the seq subselect
	// in InsertRun relies on not racing another insert.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close releases the database handle. Safe on a zero Journal.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// DB exposes the underlying connection for queries the Journal methods do
// not cover.
func (j *Journal) DB() *sql.DB {
	return j.db
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates any missing tables, then migrates older databases
// forward. Every statement involved is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations walks the database from its stored user_version up to
// currentSchemaVersion.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the segment status index for databases created before
// it appeared in schema.sql. CREATE INDEX IF NOT EXISTS is a no-op when the
// schema already provided it.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_segments_status
		ON segments(run_token, status)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma reports whether a pragma holds the expected value. Only the
// open tests use it.
func (j *Journal) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := j.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// formatValue encodes a uint64 for a TEXT column.
func formatValue(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// parseValue decodes a TEXT column written by formatValue.
func parseValue(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt stored value %q: %w", s, err)
	}
	return v, nil
}
