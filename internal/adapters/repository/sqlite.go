package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite" // registers the "sqlite" driver

	"github.com/okian/sackline/pkg/logger"
	"github.com/okian/sackline/pkg/metrics"
)

const createTable = `
CREATE TABLE IF NOT EXISTS predictions (
	id             TEXT PRIMARY KEY,
	created_at     INTEGER NOT NULL,
	schema_version TEXT NOT NULL,
	scenario       TEXT NOT NULL,
	result         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS predictions_recent ON predictions (created_at DESC, id);
`

// SQLiteStore persists the history in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:" is accepted.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := newSettings(opts)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	store := &SQLiteStore{db: db, log: s.log}
	metrics.UpdateHistoryRecords(store.Count(ctx))
	return store, nil
}

func (s *SQLiteStore) logger() logger.Logger {
	if s.log != nil {
		return s.log
	}
	return logger.Named("repository")
}

// Save implements Store.Save.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, created_at, schema_version, scenario, result) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UnixNano(), rec.SchemaVersion, string(rec.Scenario), string(rec.Result),
	)
	if err != nil {
		metrics.RecordHistoryWriteError()
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateID
		}
		s.logger().Error(ctx, "history write failed", logger.String("id", rec.ID), logger.Error(err))
		return fmt.Errorf("save prediction %s: %w", rec.ID, err)
	}
	metrics.UpdateHistoryRecords(s.Count(ctx))
	return nil
}

func scanRecord(sc interface{ Scan(...any) error }) (Record, error) {
	var (
		r                Record
		nanos            int64
		scenario, result string
	)
	if err := sc.Scan(&r.ID, &nanos, &r.SchemaVersion, &scenario, &result); err != nil {
		return Record{}, err
	}
	r.CreatedAt = time.Unix(0, nanos).UTC()
	r.Scenario = []byte(scenario)
	r.Result = []byte(result)
	return r, nil
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, schema_version, scenario, result FROM predictions WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

// Recent implements Store.Recent.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Record, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, schema_version, scenario, result FROM predictions
		 ORDER BY created_at DESC, id ASC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count implements Store.Count. Errors count as zero.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error { return s.db.Close() }
