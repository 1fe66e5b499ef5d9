// Package storage keeps a SQLite snapshot of the workbook. The mirror
// worker fills it and the sqlite data backend reads from it.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/sheets"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when the mirror has not stored the requested
// table or value yet.
var ErrNoSnapshot = errors.New("no snapshot")

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ sheets.Worksheet           = (*SQLiteRepository)(nil)
	_ sheets.SnapshotWriter      = (*SQLiteRepository)(nil)
	_ sheets.SnapshotBatchWriter = (*SQLiteRepository)(nil)
	_ sheets.RefreshReporter     = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// WriteTable replaces the stored copy of t for p in one transaction.
func (r *SQLiteRepository) WriteTable(ctx context.Context, p core.Period, t sheets.Table, rows sheets.Rows) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return writeTable(ctx, tx, p, t, rows, time.Now().UTC())
	})
}

func (r *SQLiteRepository) WriteValue(ctx context.Context, p core.Period, n sheets.Name, value string) error {
	return writeValue(ctx, r.db, p, n, value, time.Now().UTC())
}

// WriteSnapshot replaces every table and value of snap for p in a single
// transaction. Entries share one refresh time.
func (r *SQLiteRepository) WriteSnapshot(ctx context.Context, p core.Period, snap sheets.Snapshot) error {
	now := time.Now().UTC()
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, ts := range snap.Tables {
			if !ts.Table.Valid() {
				return fmt.Errorf("unknown table %q", ts.Table)
			}
			if err := writeTable(ctx, tx, p, ts.Table, ts.Rows, now); err != nil {
				return err
			}
		}
		for _, vs := range snap.Values {
			if err := writeValue(ctx, tx, p, vs.Name, vs.Value, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", p.Key(), err)
	}
	slog.DebugContext(ctx, "Snapshot stored", "period", p.Key(), "tables", len(snap.Tables), "values", len(snap.Values))
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func writeTable(ctx context.Context, db execer, p core.Period, t sheets.Table, rows sheets.Rows, at time.Time) error {
	header, err := json.Marshal(rows.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`DELETE FROM snapshot_rows WHERE period = ? AND table_name = ?`, p.Key(), string(t)); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO snapshot_tables (period, table_name, header, refreshed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (period, table_name) DO UPDATE SET header = excluded.header, refreshed_at = excluded.refreshed_at`,
		p.Key(), string(t), string(header), at); err != nil {
		return fmt.Errorf("upsert table: %w", err)
	}

	stmt, err := db.PrepareContext(ctx,
		`INSERT INTO snapshot_rows (period, table_name, row_index, cells) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare rows: %w", err)
	}
	defer stmt.Close()
	for i, row := range rows.Values()[1:] {
		cells, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, p.Key(), string(t), i, string(cells)); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	slog.DebugContext(ctx, "Snapshot table stored", "period", p.Key(), "table", t, "rows", rows.Len())
	return nil
}

func writeValue(ctx context.Context, db execer, p core.Period, n sheets.Name, value string, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO snapshot_values (period, name, value, refreshed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (period, name) DO UPDATE SET value = excluded.value, refreshed_at = excluded.refreshed_at`,
		p.Key(), string(n), value, at)
	if err != nil {
		return fmt.Errorf("upsert value %s: %w", n, err)
	}
	return nil
}

func (r *SQLiteRepository) ReadTable(ctx context.Context, p core.Period, t sheets.Table) (sheets.Rows, error) {
	var header string
	err := r.db.QueryRowContext(ctx,
		`SELECT header FROM snapshot_tables WHERE period = ? AND table_name = ?`, p.Key(), string(t)).Scan(&header)
	if errors.Is(err, sql.ErrNoRows) {
		return sheets.Rows{}, fmt.Errorf("%w for %s in %s", ErrNoSnapshot, t, p)
	}
	if err != nil {
		return sheets.Rows{}, fmt.Errorf("read header: %w", err)
	}

	values := make([][]string, 1)
	if err := json.Unmarshal([]byte(header), &values[0]); err != nil {
		return sheets.Rows{}, fmt.Errorf("decode header: %w", err)
	}

	rs, err := r.db.QueryContext(ctx,
		`SELECT cells FROM snapshot_rows WHERE period = ? AND table_name = ? ORDER BY row_index`, p.Key(), string(t))
	if err != nil {
		return sheets.Rows{}, fmt.Errorf("query rows: %w", err)
	}
	defer rs.Close()
	for rs.Next() {
		var raw string
		if err := rs.Scan(&raw); err != nil {
			return sheets.Rows{}, fmt.Errorf("scan row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return sheets.Rows{}, fmt.Errorf("decode row: %w", err)
		}
		values = append(values, cells)
	}
	if err := rs.Err(); err != nil {
		return sheets.Rows{}, fmt.Errorf("iterate rows: %w", err)
	}
	return sheets.FromValues(values), nil
}

func (r *SQLiteRepository) ReadValue(ctx context.Context, p core.Period, n sheets.Name) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM snapshot_values WHERE period = ? AND name = ?`, p.Key(), string(n)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w for %s in %s", ErrNoSnapshot, n, p)
	}
	if err != nil {
		return "", fmt.Errorf("read value: %w", err)
	}
	return v, nil
}

// LastRefreshed returns when any table of p was last stored.
func (r *SQLiteRepository) LastRefreshed(ctx context.Context, p core.Period) (time.Time, error) {
	var ts sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(refreshed_at) FROM snapshot_tables WHERE period = ?`, p.Key()).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("read refresh time: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%w in %s", ErrNoSnapshot, p)
	}
	return parseTimestamp(ts.String)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
