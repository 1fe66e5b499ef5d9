package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"keuangan/internal/core"
	ports "keuangan/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Monthly Overview")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Monthly Overview", "H4", &[]interface{}{"Budget Category", "Cash Flow Type", "Planned", "Actual"}))
	require.NoError(t, f.SetSheetRow("Monthly Overview", "H5", &[]interface{}{"Gaji", "Income", "Rp 15.000.000,00", "Rp 14.800.000,00"}))
	require.NoError(t, f.SetSheetRow("Monthly Overview", "H6", &[]interface{}{"Kebutuhan Harian", "Expense", "Rp 2.000.000,00", "Rp 2.200.000,00"}))
	require.NoError(t, f.SetCellValue("Monthly Overview", "B2", "Rp 500.000,00"))
	require.NoError(t, f.SetCellValue("Monthly Overview", "C2", "Rp 9.000.000,00"))
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{Name: "Unallocated", RefersTo: "'Monthly Overview'!$B$2"}))

	_, err = f.NewSheet("Accounts State")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Accounts State", "A1", &[]interface{}{"Alias", "Account Balance"}))
	require.NoError(t, f.SetSheetRow("Accounts State", "A2", &[]interface{}{"Budi - BCA", "Rp 1.000.000,00"}))

	path := filepath.Join(t.TempDir(), "budget.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadTableClipsRange(t *testing.T) {
	w := New(writeWorkbook(t), ports.DefaultLayout())
	p := core.Period{Year: 2025, Month: "Desember"}

	rows, err := w.ReadTable(context.Background(), p, ports.CategoryOverview)
	require.NoError(t, err)
	assert.Equal(t, []string{"Budget Category", "Cash Flow Type", "Planned", "Actual"}, rows.Header)
	require.Equal(t, 2, rows.Len())
	assert.Equal(t, "Rp 2.200.000,00", rows.Records[1]["Actual"])

	rows, err = w.ReadTable(context.Background(), p, ports.Accounts)
	require.NoError(t, err)
	require.Equal(t, 1, rows.Len())
	assert.Equal(t, "Budi - BCA", rows.Records[0]["Alias"])

	_, err = w.ReadTable(context.Background(), p, ports.MoneyTracker)
	assert.Error(t, err, "missing sheet must fail")
}

func TestReadValue(t *testing.T) {
	layout := ports.DefaultLayout()
	layout.Values[ports.TotalHolding] = "'Monthly Overview'!C2"
	w := New(writeWorkbook(t), layout)
	p := core.Period{Year: 2025, Month: "Desember"}

	v, err := w.ReadValue(context.Background(), p, ports.Unallocated)
	require.NoError(t, err)
	assert.Equal(t, "Rp 500.000,00", v)

	v, err = w.ReadValue(context.Background(), p, ports.TotalHolding)
	require.NoError(t, err)
	assert.Equal(t, "Rp 9.000.000,00", v)

	_, err = w.ReadValue(context.Background(), p, ports.TotalSaved)
	assert.ErrorContains(t, err, "defined name Total_This_Month_Saving not found")
}

func TestOpenMissingFile(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope.xlsx"), ports.DefaultLayout())
	_, err := w.ReadTable(context.Background(), core.Period{Year: 2025, Month: "Mei"}, ports.Accounts)
	assert.ErrorContains(t, err, "open workbook")
}

func TestClip(t *testing.T) {
	rows := [][]string{
		{"a", "b", "c"},
		{"d", "e"},
		{"g", "h", "i"},
	}
	out, err := clip(rows, "B2:C5")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"e", ""}, {"h", "i"}}, out)

	_, err = clip(rows, "??")
	assert.Error(t, err)
}
