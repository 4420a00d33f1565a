package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// fixed width so that created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// catalog indexes saved runs in a SQLite database next to the run
// directories. The files stay the source of truth; the catalog can be
// rebuilt from them.
type catalog struct {
	db *sql.DB
}

func openCatalog(path string) (*catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect catalog: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}

	return &catalog{db: db}, nil
}

func (c *catalog) close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *catalog) count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n)
	return n, err
}

func (c *catalog) insert(ctx context.Context, meta *RunMetadata) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, system, stepper, created_at, dt, duration, steps, energy_drift, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.System, meta.Stepper,
		meta.Timestamp.UTC().Format(timeLayout),
		meta.Dt, meta.Duration, meta.StepsTaken, meta.EnergyDrift,
		len(meta.Errors) > 0)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", meta.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_metrics WHERE run_id = ?", meta.ID); err != nil {
		return err
	}
	for name, value := range meta.Metrics {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_metrics (run_id, name, value) VALUES (?, ?, ?)",
			meta.ID, name, value); err != nil {
			return fmt.Errorf("insert metric %s: %w", name, err)
		}
	}

	return tx.Commit()
}

func (c *catalog) remove(ctx context.Context, id string) (bool, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (c *catalog) list(ctx context.Context, f Filter) ([]RunMetadata, error) {
	query := `SELECT id, system, stepper, created_at, dt, duration, steps, energy_drift, failed
		FROM runs WHERE (? = '' OR system = ?) AND (? = '' OR stepper = ?)
		ORDER BY created_at DESC, id`
	args := []any{f.System, f.System, f.Stepper, f.Stepper}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			meta    RunMetadata
			created string
			failed  bool
		)
		if err := rows.Scan(&meta.ID, &meta.System, &meta.Stepper, &created,
			&meta.Dt, &meta.Duration, &meta.StepsTaken, &meta.EnergyDrift, &failed); err != nil {
			return nil, err
		}
		meta.Timestamp, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad timestamp %q: %w", meta.ID, created, err)
		}
		if failed {
			meta.Errors = []string{"run reported errors"}
		}
		meta.Metrics = make(map[string]float64)
		index[meta.ID] = len(runs)
		runs = append(runs, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(runs) == 0 {
		return runs, nil
	}

	mrows, err := c.db.QueryContext(ctx, "SELECT run_id, name, value FROM run_metrics")
	if err != nil {
		return nil, err
	}
	defer mrows.Close()
	for mrows.Next() {
		var (
			id, name string
			value    float64
		)
		if err := mrows.Scan(&id, &name, &value); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			runs[i].Metrics[name] = value
		}
	}
	return runs, mrows.Err()
}

func sortByTime(runs []RunMetadata) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
}
