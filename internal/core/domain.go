package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  CashFlowType = "Income"
	Expense CashFlowType = "Expense"
	Savings CashFlowType = "Savings"
)

// SheetDateLayout is the dd/mm/yyyy layout used by the ledger and the
// annual planning sheet.
const SheetDateLayout = "02/01/2006"

type (
	// CashFlowType classifies a budget category or a transaction.
	CashFlowType string

	// BudgetCategoryRow is one budget category of a period with its
	// normalized planned and actual amounts.
	BudgetCategoryRow struct {
		Category string
		Type     CashFlowType
		Planned  decimal.Decimal
		Actual   decimal.Decimal
	}

	// AccountRow is one bank or cash account.
	AccountRow struct {
		Name    string
		Owner   string
		Balance decimal.Decimal
	}

	// Transaction is one ledger entry of the money tracker.
	Transaction struct {
		Date     time.Time
		Type     CashFlowType
		Amount   decimal.Decimal
		Flow     decimal.Decimal // signed cash flow column, zero when absent
		Account  string
		Category string
		Item     string // budget item (sub-category)
		Notes    string
	}

	// FinancialGoal is one long-term savings goal of the annual plan.
	FinancialGoal struct {
		Label    string
		Target   decimal.Decimal
		Achieved decimal.Decimal
		DueDate  time.Time
		Reached  bool
	}

	// OverviewMetrics are the period totals the overview sheet computes
	// with its own formulas.
	OverviewMetrics struct {
		TotalSaved   decimal.Decimal
		Unallocated  decimal.Decimal
		TotalHolding decimal.Decimal
	}
)

// CashFlowTypes lists every known cash flow type.
func CashFlowTypes() []CashFlowType {
	return []CashFlowType{Income, Expense, Savings}
}

// ParseCashFlowType matches s case-insensitively against the closed
// vocabulary.
func ParseCashFlowType(s string) (CashFlowType, error) {
	s = strings.TrimSpace(s)
	for _, t := range CashFlowTypes() {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", &ParseError{Kind: "cash flow type", Input: s, Err: errors.New("unknown type")}
}

func (t CashFlowType) Valid() bool {
	switch t {
	case Income, Expense, Savings:
		return true
	}
	return false
}

// Difference is always derived from planned and actual, never stored.
func (r BudgetCategoryRow) Difference() decimal.Decimal {
	return r.Actual.Sub(r.Planned)
}

// Remaining is the amount still missing to reach the target.
func (g FinancialGoal) Remaining() decimal.Decimal {
	return g.Target.Sub(g.Achieved)
}

// Progress returns the achieved share of the target in percent.
func (g FinancialGoal) Progress() decimal.Decimal {
	if g.Target.IsZero() {
		return decimal.Zero
	}
	return g.Achieved.Div(g.Target).Mul(decimal.NewFromInt(100))
}

// MonthsLeft counts whole calendar months from today until the due date.
// Overdue goals return a negative count.
func (g FinancialGoal) MonthsLeft(today time.Time) int {
	months := (g.DueDate.Year()-today.Year())*12 + int(g.DueDate.Month()) - int(today.Month())
	if months > 0 && g.DueDate.Day() < today.Day() {
		months--
	} else if months < 0 && g.DueDate.Day() > today.Day() {
		months++
	}
	return months
}

// ParseSheetDate parses a dd/mm/yyyy cell.
func ParseSheetDate(s string) (time.Time, error) {
	t, err := time.Parse(SheetDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ParseError{Kind: "date", Input: s, Err: err}
	}
	return t, nil
}

// ParseSheetBool reads the TRUE/FALSE checkbox cells of the sheet.
func ParseSheetBool(s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE":
		return true, nil
	case "FALSE", "":
		return false, nil
	}
	return false, &ParseError{Kind: "boolean", Input: s}
}
