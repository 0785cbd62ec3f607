// Package recording persists run statistics snapshots in SQLite so that
// configurations can be compared across separate replays.
package recording

import (
	"database/sql"
	"fmt"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cachesim/sim"
)

// RunEntry is one recorded run as stored in the runs table.
type RunEntry struct {
	RunID            string
	Label            string
	CreatedAt        time.Time
	BlockSizeBytes   int64
	NumLayers        int
	WritePolicy      string
	OutstandingLimit int
	MemoryLatency    int64
	TotalAccesses    int
	SimEndedTime     int64
	MeanExecution    float64
	MeanStall        float64
}

// RunRecorder is a backend that stores run snapshots.
type RunRecorder interface {
	// RecordRun stores m under a fresh run ID and returns that ID.
	RecordRun(label string, cfg sim.HierarchyConfig, m *sim.Metrics) (string, error)

	// Runs lists every recorded run, oldest first.
	Runs() ([]RunEntry, error)

	// LayerStats returns the per-layer snapshot of one run, top layer first.
	LayerStats(runID string) ([]sim.LayerStats, error)

	// Close releases the database.
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id            TEXT PRIMARY KEY,
	label             TEXT NOT NULL,
	created_at        INTEGER NOT NULL,
	block_size        INTEGER NOT NULL,
	num_layers        INTEGER NOT NULL,
	write_policy      TEXT NOT NULL,
	outstanding_limit INTEGER NOT NULL,
	memory_latency    INTEGER NOT NULL,
	total_accesses    INTEGER NOT NULL,
	sim_ended_time    INTEGER NOT NULL,
	mean_execution    REAL NOT NULL,
	mean_stall        REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS layers (
	run_id             TEXT NOT NULL REFERENCES runs(run_id),
	level              INTEGER NOT NULL,
	name               TEXT NOT NULL,
	size_bytes         INTEGER NOT NULL,
	block_size         INTEGER NOT NULL,
	ways               INTEGER NOT NULL,
	num_sets           INTEGER NOT NULL,
	latency            INTEGER NOT NULL,
	accesses           INTEGER NOT NULL,
	hits               INTEGER NOT NULL,
	misses             INTEGER NOT NULL,
	hit_rate           REAL NOT NULL,
	miss_rate          REAL NOT NULL,
	evictions          INTEGER NOT NULL,
	writebacks         INTEGER NOT NULL,
	back_invalidations INTEGER NOT NULL,
	PRIMARY KEY (run_id, level)
);`

// sqliteRecorder is the recorder that writes runs into a SQLite database.
type sqliteRecorder struct {
	*sql.DB
}

// New opens (or creates) the database at path. An empty path creates a fresh
// uniquely named file in the working directory.
func New(path string) (RunRecorder, error) {
	if path == "" {
		path = "cachesim_runs_" + xid.New().String() + ".sqlite3"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening run database %s: %w", path, err)
	}
	logrus.Infof("Recording runs to %s", path)
	return NewWithDB(db)
}

// NewWithDB wraps an already open database, creating the tables if needed.
func NewWithDB(db *sql.DB) (RunRecorder, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating run tables: %w", err)
	}
	return &sqliteRecorder{DB: db}, nil
}

func (r *sqliteRecorder) RecordRun(label string, cfg sim.HierarchyConfig, m *sim.Metrics) (runID string, err error) {
	id := xid.New()
	runID = id.String()

	tx, err := r.Begin()
	if err != nil {
		return "", fmt.Errorf("starting run transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, label, id.Time().UnixNano(), cfg.BlockSizeBytes, len(m.Layers), string(cfg.WritePolicy),
		cfg.OutstandingAccessLimit, m.MemoryLatency, m.TotalAccesses, m.SimEndedTime,
		m.Execution.Mean, m.Stall.Mean)
	if err != nil {
		return "", fmt.Errorf("inserting run %s: %w", runID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO layers VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing layer insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with the transaction

	for _, l := range m.Layers {
		_, err = stmt.Exec(runID, l.Level, l.Name, l.SizeBytes, l.BlockSizeBytes, l.Ways, l.NumSets,
			l.LatencyCycles, l.Accesses, l.Hits, l.Misses, l.HitRate, l.MissRate,
			l.Evictions, l.Writebacks, l.BackInvalidations)
		if err != nil {
			return "", fmt.Errorf("inserting layer %s of run %s: %w", l.Name, runID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run %s: %w", runID, err)
	}
	logrus.Debugf("Recorded run %s (%s)", runID, label)
	return runID, nil
}

func (r *sqliteRecorder) Runs() ([]RunEntry, error) {
	rows, err := r.Query(`SELECT run_id, label, created_at, block_size, num_layers, write_policy,
		outstanding_limit, memory_latency, total_accesses, sim_ended_time, mean_execution, mean_stall
		FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var out []RunEntry
	for rows.Next() {
		var e RunEntry
		var created int64
		if err := rows.Scan(&e.RunID, &e.Label, &created, &e.BlockSizeBytes, &e.NumLayers, &e.WritePolicy,
			&e.OutstandingLimit, &e.MemoryLatency, &e.TotalAccesses, &e.SimEndedTime,
			&e.MeanExecution, &e.MeanStall); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *sqliteRecorder) LayerStats(runID string) ([]sim.LayerStats, error) {
	rows, err := r.Query(`SELECT level, name, size_bytes, block_size, ways, num_sets, latency,
		accesses, hits, misses, hit_rate, miss_rate, evictions, writebacks, back_invalidations
		FROM layers WHERE run_id = ? ORDER BY level`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying layers of run %s: %w", runID, err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var out []sim.LayerStats
	for rows.Next() {
		var l sim.LayerStats
		if err := rows.Scan(&l.Level, &l.Name, &l.SizeBytes, &l.BlockSizeBytes, &l.Ways, &l.NumSets,
			&l.LatencyCycles, &l.Accesses, &l.Hits, &l.Misses, &l.HitRate, &l.MissRate,
			&l.Evictions, &l.Writebacks, &l.BackInvalidations); err != nil {
			return nil, fmt.Errorf("scanning layer of run %s: %w", runID, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
