package aggregate

import (
	"sort"
	"time"

	"keuangan/internal/core"

	"github.com/shopspring/decimal"
)

// DateLayout renders matrix dates.
const DateLayout = "2006-01-02"

// Matrix is the pivoted ledger: one row per date, one column per budget
// item. Cells[i][j] is the sum for Dates[i] and Items[j].
type Matrix struct {
	Dates []time.Time
	Items []string
	Cells [][]decimal.Decimal
}

// Series is one budget item across every date of the matrix.
type Series struct {
	Item   string
	Values []decimal.Decimal
}

// Pivot sums amounts per (date, item). Dates are ascending, items sorted
// by name, missing combinations are zero.
func Pivot(txs []core.Transaction) Matrix {
	sums := map[time.Time]map[string]decimal.Decimal{}
	itemSet := map[string]struct{}{}
	for _, tx := range txs {
		day := truncate(tx.Date)
		if sums[day] == nil {
			sums[day] = map[string]decimal.Decimal{}
		}
		sums[day][tx.Item] = sums[day][tx.Item].Add(tx.Amount)
		itemSet[tx.Item] = struct{}{}
	}

	m := Matrix{
		Dates: make([]time.Time, 0, len(sums)),
		Items: make([]string, 0, len(itemSet)),
	}
	for day := range sums {
		m.Dates = append(m.Dates, day)
	}
	sort.Slice(m.Dates, func(i, j int) bool { return m.Dates[i].Before(m.Dates[j]) })
	for item := range itemSet {
		m.Items = append(m.Items, item)
	}
	sort.Strings(m.Items)

	m.Cells = make([][]decimal.Decimal, len(m.Dates))
	for i, day := range m.Dates {
		row := make([]decimal.Decimal, len(m.Items))
		for j, item := range m.Items {
			row[j] = sums[day][item]
		}
		m.Cells[i] = row
	}
	return m
}

// Cell returns the sum for date and item, zero when absent.
func (m Matrix) Cell(date time.Time, item string) decimal.Decimal {
	day := truncate(date)
	for i, d := range m.Dates {
		if !d.Equal(day) {
			continue
		}
		for j, it := range m.Items {
			if it == item {
				return m.Cells[i][j]
			}
		}
	}
	return decimal.Zero
}

// Series returns one column per item, ready for a stacked chart.
func (m Matrix) Series() []Series {
	out := make([]Series, len(m.Items))
	for j, item := range m.Items {
		vals := make([]decimal.Decimal, len(m.Dates))
		for i := range m.Dates {
			vals[i] = m.Cells[i][j]
		}
		out[j] = Series{Item: item, Values: vals}
	}
	return out
}

// Labels formats the matrix dates.
func (m Matrix) Labels() []string {
	out := make([]string, len(m.Dates))
	for i, d := range m.Dates {
		out[i] = d.Format(DateLayout)
	}
	return out
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
