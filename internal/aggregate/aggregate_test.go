package aggregate

import (
	"testing"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/sheets"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ledgerRows() sheets.Rows {
	return sheets.FromValues([][]string{
		{"Timestamp", "Transaction Date", "Cashflow Type", "Transasction Amount", "Cashflow", "Account", "Budget Category", "Budget Item", "Notes"},
		{"01/12/2025 08:00:00", "01/12/2025", "Expense", "Rp 10.000,00", "-Rp 10.000,00", "Budi - BCA", "Kebutuhan Harian", "Makan", ""},
		{"01/12/2025 12:00:00", "01/12/2025", "Expense", "Rp 20.000,00", "-Rp 20.000,00", "Budi - BCA", "Kebutuhan Harian", "Makan", "siang"},
		{"01/12/2025 19:00:00", "01/12/2025", "Expense", "-Rp 5.000,00", "Rp 5.000,00", "Budi - BCA", "Kebutuhan Harian", "Makan", "refund"},
		{"03/12/2025 09:00:00", "03/12/2025", "Expense", "Rp 50.000,00", "", "Sari - Cash", "Kebutuhan Harian", "Transport", ""},
		{"30/11/2025 09:00:00", "30/11/2025", "Expense", "Rp 70.000,00", "", "Sari - Cash", "Kebutuhan Harian", "Makan", ""},
		{"01/01/2026 09:00:00", "01/01/2026", "Expense", "Rp 80.000,00", "", "Sari - Cash", "Kebutuhan Harian", "Makan", ""},
		{"02/12/2025 09:00:00", "02/12/2025", "Income", "Rp 15.000.000,00", "", "Budi - BCA", "Gaji", "Gaji Pokok", ""},
	})
}

func TestParseLedger(t *testing.T) {
	txs, err := ParseLedger(ledgerRows(), DefaultLedgerColumns())
	require.NoError(t, err)
	require.Len(t, txs, 7)

	assert.Equal(t, day(2025, 12, 1), txs[0].Date)
	assert.Equal(t, core.Expense, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(amt("10000")))
	assert.True(t, txs[0].Flow.Equal(amt("-10000")))
	assert.True(t, txs[2].Amount.Equal(amt("-5000")))
	assert.True(t, txs[3].Flow.IsZero())
	assert.Equal(t, "Sari - Cash", txs[3].Account)
	assert.Equal(t, "siang", txs[1].Notes)
}

func TestParseLedgerErrors(t *testing.T) {
	rows := sheets.FromValues([][]string{
		{"Transaction Date", "Transasction Amount", "Budget Category", "Budget Item"},
		{"2025-12-01", "Rp 1,00", "A", "B"},
	})
	_, err := ParseLedger(rows, DefaultLedgerColumns())
	assert.ErrorIs(t, err, core.ErrParse)
	assert.ErrorContains(t, err, "ledger row 1")

	rows = sheets.FromValues([][]string{
		{"Transaction Date", "Transasction Amount", "Budget Category", "Budget Item"},
		{"01/12/2025", "sepuluh", "A", "B"},
	})
	_, err = ParseLedger(rows, DefaultLedgerColumns())
	assert.ErrorIs(t, err, core.ErrParse)

	rows = sheets.FromValues([][]string{{"Date", "Amount"}, {"01/12/2025", "Rp 1,00"}})
	_, err = ParseLedger(rows, DefaultLedgerColumns())
	assert.ErrorIs(t, err, core.ErrParse)
	assert.ErrorContains(t, err, "Transaction Date")
}

func TestFilterByCategoryAndPeriod(t *testing.T) {
	txs, err := ParseLedger(ledgerRows(), DefaultLedgerColumns())
	require.NoError(t, err)

	out, err := Filter(txs, "Kebutuhan Harian", core.Period{Year: 2025, Month: "Desember"})
	require.NoError(t, err)
	require.Len(t, out, 4)
	for _, tx := range out {
		assert.Equal(t, "Kebutuhan Harian", tx.Category)
		assert.Equal(t, time.December, tx.Date.Month())
	}
	assert.Equal(t, "siang", out[1].Notes, "ledger order is preserved")

	_, err = Filter(txs, "Gaji", core.Period{Year: 2025, Month: "Dec"})
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}

func TestPivotSumsDuplicateCells(t *testing.T) {
	txs := []core.Transaction{
		{Date: day(2025, 12, 1), Item: "Makan", Amount: amt("10000")},
		{Date: day(2025, 12, 1), Item: "Makan", Amount: amt("20000")},
		{Date: day(2025, 12, 1), Item: "Makan", Amount: amt("-5000")},
	}
	m := Pivot(txs)
	require.Len(t, m.Dates, 1)
	require.Equal(t, []string{"Makan"}, m.Items)
	assert.True(t, m.Cell(day(2025, 12, 1), "Makan").Equal(amt("25000")))
}

func TestPivotFillsMissingWithZero(t *testing.T) {
	txs := []core.Transaction{
		{Date: day(2025, 12, 3), Item: "Transport", Amount: amt("50000")},
		{Date: day(2025, 12, 1), Item: "Makan", Amount: amt("10000")},
		{Date: time.Date(2025, 12, 1, 18, 30, 0, 0, time.UTC), Item: "Makan", Amount: amt("2500")},
	}
	m := Pivot(txs)
	assert.Equal(t, []string{"2025-12-01", "2025-12-03"}, m.Labels())
	assert.Equal(t, []string{"Makan", "Transport"}, m.Items)

	assert.True(t, m.Cell(day(2025, 12, 1), "Makan").Equal(amt("12500")))
	assert.True(t, m.Cell(day(2025, 12, 1), "Transport").IsZero())
	assert.True(t, m.Cell(day(2025, 12, 3), "Makan").IsZero())
	assert.True(t, m.Cell(day(2025, 12, 9), "Makan").IsZero())

	series := m.Series()
	require.Len(t, series, 2)
	assert.Equal(t, "Transport", series[1].Item)
	assert.True(t, series[1].Values[0].IsZero())
	assert.True(t, series[1].Values[1].Equal(amt("50000")))
}

func TestPivotEmpty(t *testing.T) {
	m := Pivot(nil)
	assert.Empty(t, m.Dates)
	assert.Empty(t, m.Items)
	assert.Empty(t, m.Series())
}

func TestLedgerColumnsWithDefaults(t *testing.T) {
	c := LedgerColumns{Amount: "Transaction Amount"}.WithDefaults()
	assert.Equal(t, "Transaction Amount", c.Amount)
	assert.Equal(t, "Transaction Date", c.Date)
	assert.Equal(t, "Budget Item", c.Item)
}
