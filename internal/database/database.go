package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"taskminder/internal/metrics"
	"taskminder/internal/models"
	"taskminder/internal/storage"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const backendName = "sqlite"

// DB is the SQLite task store. It keeps the same contract as the JSON file
// store: saves merge by name, an empty save clears every row.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	// Создаем директорию для БД, если её нет
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer and :memory: is per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Task database initialized")
	return &DB{DB: db, path: path, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            position INTEGER NOT NULL,
            name TEXT NOT NULL UNIQUE,
            run_interval TEXT NOT NULL,
            last_run TEXT,
            enabled BOOLEAN NOT NULL DEFAULT 0,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_position ON tasks(position)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Path returns the database file the store was opened with.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) Load(ctx context.Context) ([]models.Task, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, run_interval, last_run, enabled FROM tasks ORDER BY position, id`)
	if err != nil {
		return nil, db.storageError("load", storage.ErrReadFailure, err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var (
			task     models.Task
			interval string
			lastRun  sql.NullString
		)
		if err := rows.Scan(&task.Name, &interval, &lastRun, &task.Enabled); err != nil {
			return nil, db.storageError("load", storage.ErrReadFailure, err)
		}
		task.Interval = models.ParseInterval(interval)
		if lastRun.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, lastRun.String); err == nil {
				local := ts.Local()
				task.LastRun = &local
			}
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, db.storageError("load", storage.ErrReadFailure, err)
	}
	return tasks, nil
}

// Save upserts tasks by name inside one transaction. New names take the next
// position so the stored order matches the file store.
func (db *DB) Save(ctx context.Context, tasks []models.Task) (err error) {
	defer func() { metrics.IncSave(backendName, err) }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return db.storageError("save", storage.ErrWriteFailure, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if len(tasks) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
			return db.storageError("clear", storage.ErrWriteFailure, err)
		}
		if err := tx.Commit(); err != nil {
			return db.storageError("clear", storage.ErrWriteFailure, err)
		}
		db.logger.Info().Str("path", db.path).Msg("All tasks cleared")
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO tasks (position, name, run_interval, last_run, enabled)
        VALUES ((SELECT COALESCE(MAX(position), -1) + 1 FROM tasks), ?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            run_interval = excluded.run_interval,
            last_run = excluded.last_run,
            enabled = excluded.enabled,
            updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return db.storageError("save", storage.ErrWriteFailure, err)
	}
	defer stmt.Close()

	// Merge collapses duplicate input names the same way the file store does.
	for _, task := range storage.Merge(nil, tasks) {
		if _, err := stmt.ExecContext(ctx, task.Name, task.Interval.String(), formatLastRun(task.LastRun), task.Enabled); err != nil {
			return db.storageError("save", storage.ErrWriteFailure, fmt.Errorf("upsert %q: %w", task.Name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return db.storageError("save", storage.ErrWriteFailure, err)
	}
	db.logger.Debug().Int("tasks", len(tasks)).Str("path", db.path).Msg("Tasks saved")
	return nil
}

func (db *DB) Remove(ctx context.Context, names ...string) (err error) {
	if len(names) == 0 {
		return nil
	}
	defer func() { metrics.IncSave(backendName, err) }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return db.storageError("remove", storage.ErrWriteFailure, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE name = ?`, name); err != nil {
			return db.storageError("remove", storage.ErrWriteFailure, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return db.storageError("remove", storage.ErrWriteFailure, err)
	}
	return nil
}

func (db *DB) storageError(op string, kind, err error) error {
	return &storage.StorageError{Op: op, Path: db.path, Kind: kind, Err: err}
}

func formatLastRun(ts *time.Time) any {
	if ts == nil {
		return nil
	}
	return ts.Format(time.RFC3339Nano)
}
