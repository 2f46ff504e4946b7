// Package sqlite persists load-run history so created-vs-attempted counts
// survive past the process that produced them.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ecom-graph/backend/internal/storage/models"
	"github.com/ecom-graph/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS load_runs (
		id TEXT PRIMARY KEY,
		input_path TEXT NOT NULL,
		records INTEGER NOT NULL,
		users INTEGER NOT NULL,
		sessions INTEGER NOT NULL,
		events INTEGER NOT NULL,
		nodes_created INTEGER NOT NULL,
		rels_attempted INTEGER NOT NULL,
		rels_created INTEGER NOT NULL,
		rels_failed INTEGER NOT NULL,
		outcomes_purged INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON load_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON load_runs(status);

	CREATE TABLE IF NOT EXISTS load_failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		rel_type TEXT NOT NULL,
		from_key TEXT NOT NULL,
		to_key TEXT NOT NULL,
		reason TEXT,
		FOREIGN KEY (run_id) REFERENCES load_runs(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_failures_run ON load_failures(run_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertLoadRun(run *models.LoadRun) error {
	query := `
		INSERT INTO load_runs (id, input_path, records, users, sessions, events,
			nodes_created, rels_attempted, rels_created, rels_failed,
			outcomes_purged, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		run.ID,
		run.InputPath,
		run.Records,
		run.Users,
		run.Sessions,
		run.Events,
		run.NodesCreated,
		run.RelsAttempted,
		run.RelsCreated,
		run.RelsFailed,
		run.OutcomesPurged,
		run.Status,
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert load run: %w", err)
	}

	logger.Info("Load run recorded",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("rels_failed", run.RelsFailed),
	)

	return nil
}

func (c *Client) InsertLoadFailure(failure *models.LoadFailure) error {
	query := `INSERT INTO load_failures (run_id, rel_type, from_key, to_key, reason) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		failure.RunID,
		failure.RelType,
		failure.FromKey,
		failure.ToKey,
		failure.Reason,
	)

	if err != nil {
		return fmt.Errorf("failed to insert load failure: %w", err)
	}

	return nil
}

func (c *Client) RecentLoadRuns(limit int) ([]models.LoadRun, error) {
	query := `
		SELECT id, input_path, records, users, sessions, events,
			nodes_created, rels_attempted, rels_created, rels_failed,
			outcomes_purged, status, started_at, finished_at
		FROM load_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get load runs: %w", err)
	}
	defer rows.Close()

	var runs []models.LoadRun
	for rows.Next() {
		var run models.LoadRun
		var startedAt, finishedAt int64

		err := rows.Scan(
			&run.ID,
			&run.InputPath,
			&run.Records,
			&run.Users,
			&run.Sessions,
			&run.Events,
			&run.NodesCreated,
			&run.RelsAttempted,
			&run.RelsCreated,
			&run.RelsFailed,
			&run.OutcomesPurged,
			&run.Status,
			&startedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		run.StartedAt = time.Unix(startedAt, 0)
		run.FinishedAt = time.Unix(finishedAt, 0)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (c *Client) RunFailures(runID string) ([]models.LoadFailure, error) {
	query := `SELECT id, run_id, rel_type, from_key, to_key, reason FROM load_failures WHERE run_id = ?`

	rows, err := c.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get load failures: %w", err)
	}
	defer rows.Close()

	var failures []models.LoadFailure
	for rows.Next() {
		var f models.LoadFailure
		if err := rows.Scan(&f.ID, &f.RunID, &f.RelType, &f.FromKey, &f.ToKey, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		failures = append(failures, f)
	}

	return failures, rows.Err()
}
