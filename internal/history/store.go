// Package history persists completed runs to a SQLite database so cross-run
// queries (success counts per step, historical matrices) survive results
// directory cleanups. The store is write-once per run: rows are inserted
// when a run freezes and never updated.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/docproof/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Store manages the run history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if necessary) the history database at dbPath.
// ":memory:" is supported for tests.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: writes are serialized anyway, and a pooled second
	// connection to ":memory:" would open a separate empty database.
	db.SetMaxOpenConns(1)

	// busy_timeout first so later pragmas wait on locks held by parallel runs.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry retries "database is locked" errors with exponential backoff.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if _, err := db.Exec(stmt); err == nil {
			return nil
		} else if !strings.Contains(err.Error(), "database is locked") {
			return err
		} else {
			lastErr = err
		}
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun inserts a frozen run and its step outcomes in one transaction.
func (s *Store) RecordRun(ctx context.Context, run *models.Run) error {
	envJSON := "{}"
	if len(run.Environment) > 0 {
		data, err := json.Marshal(run.Environment)
		if err != nil {
			return fmt.Errorf("marshal environment: %w", err)
		}
		envJSON = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, guide_source, scenario, platform, runtime_version, start_time, end_time, passed, failed, skipped, environment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.GuideSource, run.Scenario, run.Platform, run.RuntimeVersion,
		run.StartTime, run.EndTime, run.Summary.Passed, run.Summary.Failed, run.Summary.Skipped, envJSON)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i, step := range run.Steps {
		synthetic := 0
		if step.Synthetic {
			synthetic = 1
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO step_results
			(run_id, section, title, status, error, synthetic, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, step.Section, step.Title, step.Status, step.Error, synthetic, i)
		if err != nil {
			return fmt.Errorf("insert step result %d for run %s: %w", i, run.ID, err)
		}
	}

	return tx.Commit()
}

// StepOutcome is one historical outcome of a step, keyed by run identity.
type StepOutcome struct {
	RunID          string
	Scenario       string
	Platform       string
	RuntimeVersion string
	Status         string
	Error          string
	EndTime        time.Time
}

// OutcomesForStep returns every recorded outcome for a (section, title) key,
// newest first.
func (s *Store) OutcomesForStep(ctx context.Context, section, title string) ([]StepOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.scenario, r.platform, r.runtime_version, sr.status, sr.error, r.end_time
		FROM step_results sr JOIN runs r ON r.id = sr.run_id
		WHERE sr.section = ? AND sr.title = ?
		ORDER BY r.end_time DESC`, section, title)
	if err != nil {
		return nil, fmt.Errorf("query step outcomes: %w", err)
	}
	defer rows.Close()

	var out []StepOutcome
	for rows.Next() {
		var o StepOutcome
		if err := rows.Scan(&o.RunID, &o.Scenario, &o.Platform, &o.RuntimeVersion, &o.Status, &o.Error, &o.EndTime); err != nil {
			return nil, fmt.Errorf("scan step outcome: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SuccessCounts returns (passed, failed) totals for a step grouped by the
// given dimension: "platform", "scenario" or "runtime_version".
func (s *Store) SuccessCounts(ctx context.Context, section, title, dimension string) (map[string][2]int, error) {
	var col string
	switch dimension {
	case "platform":
		col = "r.platform"
	case "scenario":
		col = "r.scenario"
	case "runtime_version":
		col = "r.runtime_version"
	default:
		return nil, fmt.Errorf("unknown grouping dimension %q", dimension)
	}

	// col is constrained to the whitelist above.
	query := fmt.Sprintf(`
		SELECT %s,
		       SUM(CASE WHEN sr.status = 'passed' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN sr.status = 'failed' THEN 1 ELSE 0 END)
		FROM step_results sr JOIN runs r ON r.id = sr.run_id
		WHERE sr.section = ? AND sr.title = ?
		GROUP BY %s`, col, col)

	rows, err := s.db.QueryContext(ctx, query, section, title)
	if err != nil {
		return nil, fmt.Errorf("query success counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string][2]int)
	for rows.Next() {
		var key string
		var passed, failed int
		if err := rows.Scan(&key, &passed, &failed); err != nil {
			return nil, fmt.Errorf("scan success counts: %w", err)
		}
		out[key] = [2]int{passed, failed}
	}
	return out, rows.Err()
}

// RunCount returns the number of recorded runs.
func (s *Store) RunCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
