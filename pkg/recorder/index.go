package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/picogrid/maildelivery/pkg/actions"
	"github.com/picogrid/maildelivery/pkg/driver"
)

// Run statuses stored in the index.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunInfo describes a run when it starts.
type RunInfo struct {
	ID         string
	Scenario   string
	Mode       string
	DT         float64
	Trajectory string
	StartedAt  time.Time
}

// RunRecord is a row of the runs table.
type RunRecord struct {
	RunInfo
	Status    string
	Ticks     int
	SimTime   float64
	Completed int
	Delivered int
	Error     string
}

// Index is a SQLite catalogue of runs and their action events.
type Index struct {
	db *sql.DB
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty index path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			mode TEXT NOT NULL,
			dt REAL NOT NULL,
			trajectory TEXT,
			started_at TEXT NOT NULL,
			status TEXT NOT NULL,
			ticks INTEGER NOT NULL DEFAULT 0,
			sim_time REAL NOT NULL DEFAULT 0,
			completed INTEGER NOT NULL DEFAULT 0,
			delivered INTEGER NOT NULL DEFAULT 0,
			error TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			time REAL NOT NULL,
			type TEXT NOT NULL,
			agent INTEGER NOT NULL,
			action_kind TEXT NOT NULL,
			action TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_agent_tick ON events(run_id, agent, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// BeginRun inserts a run in the running state.
func (x *Index) BeginRun(ctx context.Context, info RunInfo) error {
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO runs (id, scenario, mode, dt, trajectory, started_at, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Scenario, info.Mode, info.DT, info.Trajectory,
		info.StartedAt.UTC().Format(time.RFC3339Nano), StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", info.ID, err)
	}
	return nil
}

// FinishRun stores the outcome of a run.
func (x *Index) FinishRun(ctx context.Context, runID string, res driver.Result, runErr error) error {
	status, msg := StatusCompleted, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	_, err := x.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ticks = ?, sim_time = ?, completed = ?, delivered = ?, error = ? WHERE id = ?`,
		status, res.Ticks, res.SimTime, res.Completed, res.Delivered, msg, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	return nil
}

// Observer returns a driver observer that stores the action events of runID.
func (x *Index) Observer(ctx context.Context, runID string) driver.Observer {
	seq := 0
	return driver.ObserverFunc(func(s *driver.Snapshot) error {
		if len(s.Events) == 0 {
			return nil
		}
		tx, err := x.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, ev := range s.Events {
			seq++
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO events (run_id, seq, tick, time, type, agent, action_kind, action) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, seq, ev.Tick, ev.Time, string(ev.Type), ev.Agent, string(ev.ActionKind), ev.Action); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to record event: %w", err)
			}
		}
		return tx.Commit()
	})
}

// Runs lists the most recent runs first.
func (x *Index) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := x.db.QueryContext(ctx,
		`SELECT id, scenario, mode, dt, COALESCE(trajectory, ''), started_at, status, ticks, sim_time, completed, delivered, COALESCE(error, '')
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run looks up a single run by id.
func (x *Index) Run(ctx context.Context, runID string) (RunRecord, error) {
	row := x.db.QueryRowContext(ctx,
		`SELECT id, scenario, mode, dt, COALESCE(trajectory, ''), started_at, status, ticks, sim_time, completed, delivered, COALESCE(error, '')
		 FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("run %s not found", runID)
	}
	return r, err
}

func scanRun(row interface{ Scan(dest ...any) error }) (RunRecord, error) {
	var r RunRecord
	var started string
	if err := row.Scan(&r.ID, &r.Scenario, &r.Mode, &r.DT, &r.Trajectory, &started, &r.Status,
		&r.Ticks, &r.SimTime, &r.Completed, &r.Delivered, &r.Error); err != nil {
		return RunRecord{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
		r.StartedAt = t
	}
	return r, nil
}

// Events returns the stored events of a run in order.
func (x *Index) Events(ctx context.Context, runID string) ([]driver.Event, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT tick, time, type, agent, action_kind, action FROM events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []driver.Event
	for rows.Next() {
		var ev driver.Event
		var typ, kind string
		if err := rows.Scan(&ev.Tick, &ev.Time, &typ, &ev.Agent, &kind, &ev.Action); err != nil {
			return nil, err
		}
		ev.Type = driver.EventType(typ)
		ev.ActionKind = actions.Kind(kind)
		out = append(out, ev)
	}
	return out, rows.Err()
}
