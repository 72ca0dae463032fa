package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/foreman/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore persists task results in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies the schema. ":memory:" is accepted for tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure SQLite for concurrent access. busy_timeout goes first so
	// subsequent statements wait on locks instead of failing immediately.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on
// lock errors, which can occur during concurrent initialization of the same
// database file.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}

		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}

		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// SaveResult records the terminal result of one task.
func (s *SQLiteStore) SaveResult(ctx context.Context, result *models.TaskResult) error {
	rec := recordFromResult(result, time.Now())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_results (task_id, success, error, step_count, tests_passed, tests_total, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TaskID, rec.Success, rec.Error, rec.StepCount,
		rec.TestsPassed, rec.TestsTotal, rec.Duration.Milliseconds(), rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert task result: %w", err)
	}
	return nil
}

// GetResult returns the most recent record for the task id, or ErrNotFound.
func (s *SQLiteStore) GetResult(ctx context.Context, taskID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT task_id, success, error, step_count, tests_passed, tests_total, duration_ms, recorded_at
		FROM task_results
		WHERE task_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`, taskID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query task result: %w", err)
	}
	return rec, nil
}

// ListResults returns stored records, most recent first.
func (s *SQLiteStore) ListResults(ctx context.Context, limit int) ([]*Record, error) {
	query := `
		SELECT task_id, success, error, step_count, tests_passed, tests_total, duration_ms, recorded_at
		FROM task_results
		ORDER BY recorded_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task results: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task result: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task results: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var durationMs int64
	if err := row.Scan(&rec.TaskID, &rec.Success, &rec.Error, &rec.StepCount,
		&rec.TestsPassed, &rec.TestsTotal, &durationMs, &rec.RecordedAt); err != nil {
		return nil, err
	}
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return &rec, nil
}
