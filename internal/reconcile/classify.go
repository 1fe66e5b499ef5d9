package reconcile

import (
	"fmt"

	"keuangan/internal/core"

	"github.com/shopspring/decimal"
)

// Label names the semantics of a non-zero difference.
type Label string

const (
	IncomeSurplus       Label = "income surplus"
	IncomeShortfall     Label = "income shortfall"
	Overspend           Label = "overspend"
	RemainingToAllocate Label = "remaining to allocate"
	UnderPlan           Label = "under plan"
	SavedMore           Label = "saved more than planned"
	SavedLess           Label = "saved less than planned"
)

// Sentiment tells the presentation layer how to colour a remark.
type Sentiment string

const (
	Favourable   Sentiment = "favourable"
	Unfavourable Sentiment = "unfavourable"
)

type Classification struct {
	Label     Label
	Sentiment Sentiment
}

// Remark is one entry of the budget breakdown.
type Remark struct {
	Row            core.BudgetCategoryRow
	Classification Classification
	Message        string
}

// Classify maps a cash flow type and the sign of its difference onto a
// label. Expense underspend depends on whether the period still has an
// unallocated total. ok is false for a zero difference, which carries no
// remark.
func Classify(t core.CashFlowType, diff, unallocated decimal.Decimal) (c Classification, ok bool, err error) {
	sign := diff.Sign()
	switch t {
	case core.Income:
		if sign > 0 {
			c = Classification{IncomeSurplus, Favourable}
		} else {
			c = Classification{IncomeShortfall, Unfavourable}
		}
	case core.Expense:
		switch {
		case sign > 0:
			c = Classification{Overspend, Unfavourable}
		case !unallocated.IsZero():
			c = Classification{RemainingToAllocate, Favourable}
		default:
			c = Classification{UnderPlan, Favourable}
		}
	case core.Savings:
		if sign > 0 {
			c = Classification{SavedMore, Favourable}
		} else {
			c = Classification{SavedLess, Unfavourable}
		}
	default:
		return Classification{}, false, &core.ClassificationError{Type: t}
	}
	if sign == 0 {
		return Classification{}, false, nil
	}
	return c, true, nil
}

// Breakdown classifies every row with a non-zero difference, in input
// order.
func Breakdown(rows []core.BudgetCategoryRow, unallocated decimal.Decimal) ([]Remark, error) {
	var out []Remark
	for _, r := range rows {
		diff := r.Difference()
		c, ok, err := Classify(r.Type, diff, unallocated)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", r.Category, err)
		}
		if !ok {
			continue
		}
		out = append(out, Remark{Row: r, Classification: c, Message: message(c.Label, diff)})
	}
	return out, nil
}

func message(l Label, diff decimal.Decimal) string {
	money := core.FormatRupiah(diff.Abs())
	switch l {
	case IncomeSurplus:
		return fmt.Sprintf("You received %s more income than planned!", money)
	case IncomeShortfall:
		return fmt.Sprintf("You received %s less income than planned!", money)
	case Overspend:
		return fmt.Sprintf("You overspent %s more than planned!", money)
	case RemainingToAllocate:
		return fmt.Sprintf("You have %s remain to be used!", money)
	case UnderPlan:
		return fmt.Sprintf("You have %s less than planned!", money)
	case SavedMore:
		return fmt.Sprintf("You saved %s more than planned!", money)
	case SavedLess:
		return fmt.Sprintf("You saved %s less than planned!", money)
	}
	return ""
}
