// Package budget parses the supporting tables of the workbook: accounts,
// the monthly planning list and the annual financial goals.
package budget

import (
	"fmt"
	"strings"

	"keuangan/internal/core"
	"keuangan/internal/sheets"
)

const (
	ColAlias          = "Alias"
	ColAccountBalance = "Account Balance"

	ColBudgetCategory = "Budget Category"
	ColBudgetItem     = "Budget Item"

	ColGoalTarget    = "Financial Goal"
	ColGoalAchieved  = "Currenlty Achieved" // spelled as in the sheet
	ColGoalDueDate   = "Due Date"
	ColFundsAchieved = "Funds Achieved"
)

const aliasSep = " - "

// ParseAccounts splits each "Owner - Account" alias and normalizes the
// balance. An alias without separator is an account with no owner.
func ParseAccounts(rows sheets.Rows) ([]core.AccountRow, error) {
	if len(rows.Records) == 0 {
		return nil, nil
	}
	if err := rows.Require(ColAlias, ColAccountBalance); err != nil {
		return nil, &core.ParseError{Kind: "accounts", Err: err}
	}
	out := make([]core.AccountRow, 0, len(rows.Records))
	for _, rec := range rows.Records {
		alias := strings.TrimSpace(rec[ColAlias])
		if alias == "" {
			continue
		}
		bal, err := core.ParseRupiah(rec[ColAccountBalance])
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", alias, err)
		}
		acc := core.AccountRow{Name: alias, Balance: bal}
		if owner, name, ok := strings.Cut(alias, aliasSep); ok {
			acc.Owner, acc.Name = strings.TrimSpace(owner), strings.TrimSpace(name)
		}
		out = append(out, acc)
	}
	return out, nil
}

// AccountLabel is the inverse of the alias split, used by the transaction
// form.
func AccountLabel(a core.AccountRow) string {
	if a.Owner == "" {
		return a.Name
	}
	return a.Owner + aliasSep + a.Name
}

// ParseGoals reads the annual planning table. Remaining is not read; it is
// always derived from target and achieved.
func ParseGoals(rows sheets.Rows) ([]core.FinancialGoal, error) {
	if len(rows.Records) == 0 {
		return nil, nil
	}
	if err := rows.Require(ColBudgetItem, ColGoalTarget, ColGoalAchieved, ColGoalDueDate, ColFundsAchieved); err != nil {
		return nil, &core.ParseError{Kind: "annual planning", Err: err}
	}
	out := make([]core.FinancialGoal, 0, len(rows.Records))
	for _, rec := range rows.Records {
		label := strings.TrimSpace(rec[ColBudgetItem])
		if label == "" {
			continue
		}
		g := core.FinancialGoal{Label: label}
		var err error
		if g.Target, err = core.ParseRupiah(rec[ColGoalTarget]); err != nil {
			return nil, fmt.Errorf("goal %s target: %w", label, err)
		}
		if g.Achieved, err = core.ParseRupiah(rec[ColGoalAchieved]); err != nil {
			return nil, fmt.Errorf("goal %s achieved: %w", label, err)
		}
		if g.DueDate, err = core.ParseSheetDate(rec[ColGoalDueDate]); err != nil {
			return nil, fmt.Errorf("goal %s: %w", label, err)
		}
		if g.Reached, err = core.ParseSheetBool(rec[ColFundsAchieved]); err != nil {
			return nil, fmt.Errorf("goal %s: %w", label, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// ActiveGoals drops goals whose funds are already achieved.
func ActiveGoals(goals []core.FinancialGoal) []core.FinancialGoal {
	out := make([]core.FinancialGoal, 0, len(goals))
	for _, g := range goals {
		if !g.Reached {
			out = append(out, g)
		}
	}
	return out
}

// Items returns the budget items planned under category, in sheet order
// and without duplicates.
func Items(rows sheets.Rows, category string) ([]string, error) {
	if len(rows.Records) == 0 {
		return nil, nil
	}
	if err := rows.Require(ColBudgetCategory, ColBudgetItem); err != nil {
		return nil, &core.ParseError{Kind: "monthly planning", Err: err}
	}
	seen := map[string]struct{}{}
	var out []string
	for _, rec := range rows.Records {
		if strings.TrimSpace(rec[ColBudgetCategory]) != category {
			continue
		}
		item := strings.TrimSpace(rec[ColBudgetItem])
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out, nil
}
