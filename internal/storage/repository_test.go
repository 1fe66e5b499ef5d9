package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

var dec = core.Period{Year: 2025, Month: "Desember"}

func TestWriteAndReadTable(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	rows := sheets.FromValues([][]string{
		{"Budget Category", "Cash Flow Type", "Planned", "Actual"},
		{"Gaji", "Income", "Rp 15.000.000,00", "Rp 14.800.000,00"},
		{"Kebutuhan Harian", "Expense", "Rp 2.000.000,00", "Rp 2.200.000,00"},
	})
	require.NoError(t, repo.WriteTable(ctx, dec, sheets.CategoryOverview, rows))

	got, err := repo.ReadTable(ctx, dec, sheets.CategoryOverview)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	// Replacing drops rows that disappeared upstream.
	shorter := sheets.FromValues(rows.Values()[:2])
	require.NoError(t, repo.WriteTable(ctx, dec, sheets.CategoryOverview, shorter))
	got, err = repo.ReadTable(ctx, dec, sheets.CategoryOverview)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, "Gaji", got.Records[0]["Budget Category"])
}

func TestSnapshotsArePerPeriod(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	nov := core.Period{Year: 2025, Month: "November"}

	require.NoError(t, repo.WriteTable(ctx, dec, sheets.Accounts, sheets.FromValues([][]string{{"Alias"}, {"Budi - BCA"}})))
	_, err := repo.ReadTable(ctx, nov, sheets.Accounts)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = repo.ReadValue(ctx, dec, sheets.Unallocated)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestWriteValueUpserts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.WriteValue(ctx, dec, sheets.Unallocated, "Rp 100.000,00"))
	require.NoError(t, repo.WriteValue(ctx, dec, sheets.Unallocated, "Rp 0,00"))
	v, err := repo.ReadValue(ctx, dec, sheets.Unallocated)
	require.NoError(t, err)
	assert.Equal(t, "Rp 0,00", v)
}

func TestLastRefreshed(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.LastRefreshed(ctx, dec)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	before := time.Now().Add(-time.Minute)
	require.NoError(t, repo.WriteTable(ctx, dec, sheets.MoneyTracker, sheets.FromValues([][]string{{"Transaction Date"}})))
	ts, err := repo.LastRefreshed(ctx, dec)
	require.NoError(t, err)
	assert.True(t, ts.After(before), "refresh time %v", ts)
	assert.NoError(t, repo.Ping(ctx))
}

func TestWriteSnapshotIsAllOrNothing(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first := sheets.Snapshot{
		Tables: []sheets.TableSnapshot{
			{Table: sheets.Accounts, Rows: sheets.FromValues([][]string{{"Alias"}, {"Budi - BCA"}})},
		},
		Values: []sheets.ValueSnapshot{{Name: sheets.Unallocated, Value: "Rp 100.000,00"}},
	}
	require.NoError(t, repo.WriteSnapshot(ctx, dec, first))

	broken := sheets.Snapshot{
		Tables: []sheets.TableSnapshot{
			{Table: sheets.Accounts, Rows: sheets.FromValues([][]string{{"Alias"}, {"Sari - GoPay"}, {"Reksa Dana"}})},
			{Table: sheets.Table("bogus"), Rows: sheets.FromValues([][]string{{"x"}})},
		},
		Values: []sheets.ValueSnapshot{{Name: sheets.Unallocated, Value: "Rp 0,00"}},
	}
	err := repo.WriteSnapshot(ctx, dec, broken)
	require.Error(t, err)
	assert.ErrorContains(t, err, "bogus")

	rows, err := repo.ReadTable(ctx, dec, sheets.Accounts)
	require.NoError(t, err)
	require.Equal(t, 1, rows.Len(), "the accounts rewrite was rolled back")
	assert.Equal(t, "Budi - BCA", rows.Records[0]["Alias"])
	v, err := repo.ReadValue(ctx, dec, sheets.Unallocated)
	require.NoError(t, err)
	assert.Equal(t, "Rp 100.000,00", v)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}
