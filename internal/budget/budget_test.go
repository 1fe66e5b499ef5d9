package budget

import (
	"testing"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/sheets"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccounts(t *testing.T) {
	rows := sheets.FromValues([][]string{
		{"Alias", "Account Balance"},
		{"Budi - BCA", "Rp 12.500.000,00"},
		{"Sari - Jago - Kantong", "Rp 300.000,00"},
		{"Dompet", "Rp 150.000"},
	})
	accs, err := ParseAccounts(rows)
	require.NoError(t, err)
	require.Len(t, accs, 3)

	assert.Equal(t, "Budi", accs[0].Owner)
	assert.Equal(t, "BCA", accs[0].Name)
	assert.True(t, accs[0].Balance.Equal(decimal.NewFromInt(12500000)))
	assert.Equal(t, "Jago - Kantong", accs[1].Name)
	assert.Equal(t, "", accs[2].Owner)
	assert.Equal(t, "Dompet", accs[2].Name)

	assert.Equal(t, "Budi - BCA", AccountLabel(accs[0]))
	assert.Equal(t, "Dompet", AccountLabel(accs[2]))

	_, err = ParseAccounts(sheets.FromValues([][]string{{"Alias", "Account Balance"}, {"X - Y", "n/a"}}))
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestParseGoalsAndActive(t *testing.T) {
	rows := sheets.FromValues([][]string{
		{"Budget Item", "Financial Goal", "Currenlty Achieved", "Remaining", "Due Date", "Funds Achieved"},
		{"Dana Pendidikan", "Rp 40.000.000,00", "Rp 10.000.000,00", "Rp 30.000.000,00", "31/12/2027", "FALSE"},
		{"Laptop", "Rp 15.000.000,00", "Rp 15.000.000,00", "Rp 0,00", "01/06/2025", "TRUE"},
	})
	goals, err := ParseGoals(rows)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.True(t, goals[0].Remaining().Equal(decimal.NewFromInt(30000000)))
	assert.Equal(t, time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC), goals[0].DueDate)
	assert.True(t, goals[1].Reached)

	active := ActiveGoals(goals)
	require.Len(t, active, 1)
	assert.Equal(t, "Dana Pendidikan", active[0].Label)

	bad := sheets.FromValues([][]string{
		{"Budget Item", "Financial Goal", "Currenlty Achieved", "Due Date", "Funds Achieved"},
		{"X", "Rp 1,00", "Rp 1,00", "31/12/2027", "maybe"},
	})
	_, err = ParseGoals(bad)
	assert.ErrorIs(t, err, core.ErrParse)

	_, err = ParseGoals(sheets.FromValues([][]string{{"Budget Item"}, {"X"}}))
	assert.ErrorContains(t, err, "Currenlty Achieved")
}

func TestItems(t *testing.T) {
	rows := sheets.FromValues([][]string{
		{"Budget Category", "Budget Item"},
		{"Kebutuhan Harian", "Makan"},
		{"Kebutuhan Harian", "Transport"},
		{"Hiburan", "Bioskop"},
		{"Kebutuhan Harian", "Makan"},
	})
	items, err := Items(rows, "Kebutuhan Harian")
	require.NoError(t, err)
	assert.Equal(t, []string{"Makan", "Transport"}, items)

	items, err = Items(rows, "Tidak Ada")
	require.NoError(t, err)
	assert.Empty(t, items)
}
