// Package reconcile turns the category overview table into normalized
// planned/actual rows and classifies each difference.
package reconcile

import (
	"fmt"
	"strings"

	"keuangan/internal/core"
	"keuangan/internal/sheets"
)

// Column headers of the category overview table.
const (
	ColCategory = "Budget Category"
	ColType     = "Cash Flow Type"
	ColPlanned  = "Planned"
	ColActual   = "Actual"
)

// Reconcile normalizes every overview record. Planned and actual are taken
// as absolute values because the sheet stores expense plans as negatives.
// Any malformed row fails the whole call.
func Reconcile(rows sheets.Rows) ([]core.BudgetCategoryRow, error) {
	if len(rows.Records) == 0 {
		return nil, nil
	}
	if err := rows.Require(ColCategory, ColType, ColPlanned, ColActual); err != nil {
		return nil, &core.ParseError{Kind: "category overview", Err: err}
	}

	out := make([]core.BudgetCategoryRow, 0, len(rows.Records))
	for i, rec := range rows.Records {
		name := strings.TrimSpace(rec[ColCategory])
		if name == "" {
			continue
		}
		typ, err := core.ParseCashFlowType(rec[ColType])
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", i+1, name, err)
		}
		planned, err := core.ParseRupiah(rec[ColPlanned])
		if err != nil {
			return nil, fmt.Errorf("row %d (%s) planned: %w", i+1, name, err)
		}
		actual, err := core.ParseRupiah(rec[ColActual])
		if err != nil {
			return nil, fmt.Errorf("row %d (%s) actual: %w", i+1, name, err)
		}
		out = append(out, core.BudgetCategoryRow{
			Category: name,
			Type:     typ,
			Planned:  planned.Abs(),
			Actual:   actual.Abs(),
		})
	}
	return out, nil
}

// Find returns the row for category.
func Find(rows []core.BudgetCategoryRow, category string) (core.BudgetCategoryRow, bool) {
	for _, r := range rows {
		if r.Category == category {
			return r, true
		}
	}
	return core.BudgetCategoryRow{}, false
}

// ParseMetrics normalizes the three overview named values.
func ParseMetrics(saved, unallocated, holding string) (core.OverviewMetrics, error) {
	var (
		m   core.OverviewMetrics
		err error
	)
	if m.TotalSaved, err = core.ParseRupiah(saved); err != nil {
		return core.OverviewMetrics{}, fmt.Errorf("total saved: %w", err)
	}
	if m.Unallocated, err = core.ParseRupiah(unallocated); err != nil {
		return core.OverviewMetrics{}, fmt.Errorf("unallocated: %w", err)
	}
	if m.TotalHolding, err = core.ParseRupiah(holding); err != nil {
		return core.OverviewMetrics{}, fmt.Errorf("total holding: %w", err)
	}
	return m, nil
}

// Totals sums planned and actual per cash flow type.
func Totals(rows []core.BudgetCategoryRow) map[core.CashFlowType]core.BudgetCategoryRow {
	out := make(map[core.CashFlowType]core.BudgetCategoryRow, 3)
	for _, r := range rows {
		t := out[r.Type]
		t.Category = string(r.Type)
		t.Type = r.Type
		t.Planned = t.Planned.Add(r.Planned)
		t.Actual = t.Actual.Add(r.Actual)
		out[r.Type] = t
	}
	return out
}
