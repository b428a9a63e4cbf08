// Package journal records task execution history in SQLite, one row
// per attempt. The plan file is the coordination truth; the journal is
// an append-mostly audit trail that survives resets and re-runs.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Attempt outcome values.
const (
	OutcomeRunning = "running"
	OutcomeDone    = "done"
	OutcomeFailed  = "failed"
)

// Attempt is one execution of a task by one worker.
type Attempt struct {
	ID         string
	RunID      string
	TaskName   string
	Algorithm  string
	Worker     int
	Outcome    string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Run is one invocation of the scheduler against a scenario.
type Run struct {
	ID         string
	Scenario   string
	Workers    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Journal is a SQLite-backed attempt log. Safe for concurrent use by
// the workers of one process; concurrent processes each keep their own
// journal connection, serialized by SQLite's busy handler.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at dbPath. Parent
// directories are created, WAL mode and a busy timeout are enabled.
func Open(ctx context.Context, dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	j := &Journal{db: db}
	if err := j.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return j, nil
}

// OpenMemory creates an in-memory journal for testing.
func OpenMemory(ctx context.Context) (*Journal, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open memory journal: %w", err)
	}
	// A second connection would see its own empty in-memory database.
	db.SetMaxOpenConns(1)
	j := &Journal{db: db}
	if err := j.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		workers INTEGER NOT NULL,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		task_name TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		worker INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_task_name ON attempts(task_name, started_at);
	`
	_, err := j.db.ExecContext(ctx, schema)
	return err
}

// BeginRun records the start of a scheduler invocation and returns the
// run id.
func (j *Journal) BeginRun(ctx context.Context, scenario string, workers int) (string, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, workers, started_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`, id, scenario, workers)
	if err != nil {
		return "", fmt.Errorf("failed to record run start: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's end time.
func (j *Journal) FinishRun(ctx context.Context, runID string) error {
	_, err := j.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = CURRENT_TIMESTAMP WHERE id = ?
	`, runID)
	if err != nil {
		return fmt.Errorf("failed to record run end: %w", err)
	}
	return nil
}

// RecordStart logs the beginning of a task attempt and returns the
// attempt id used to close it out.
func (j *Journal) RecordStart(ctx context.Context, runID, taskName, algorithm string, worker int) (string, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO attempts (id, run_id, task_name, algorithm, worker, outcome, started_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, id, runID, taskName, algorithm, worker, OutcomeRunning)
	if err != nil {
		return "", fmt.Errorf("failed to record attempt start: %w", err)
	}
	return id, nil
}

// RecordOutcome closes an attempt with its final outcome. taskErr may
// be nil.
func (j *Journal) RecordOutcome(ctx context.Context, attemptID, outcome string, taskErr error) error {
	errStr := ""
	if taskErr != nil {
		errStr = taskErr.Error()
	}
	res, err := j.db.ExecContext(ctx, `
		UPDATE attempts
		SET outcome = ?, error = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, outcome, errStr, attemptID)
	if err != nil {
		return fmt.Errorf("failed to record attempt outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check attempt update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("attempt not found: %s", attemptID)
	}
	return nil
}

// Attempts returns all recorded attempts for a task, oldest first.
func (j *Journal) Attempts(ctx context.Context, taskName string) ([]Attempt, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, task_name, algorithm, worker, outcome, COALESCE(error, ''),
		       started_at, finished_at
		FROM attempts
		WHERE task_name = ?
		ORDER BY started_at, rowid
	`, taskName)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		// finished_at is scanned as a nullable column and coalesced in
		// Go: the driver only maps DATETIME columns (not expressions
		// like COALESCE) to time.Time.
		var finished sql.NullTime
		if err := rows.Scan(&a.ID, &a.RunID, &a.TaskName, &a.Algorithm, &a.Worker,
			&a.Outcome, &a.Error, &a.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		if finished.Valid {
			a.FinishedAt = finished.Time
		} else {
			a.FinishedAt = a.StartedAt
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
