// Package aggregate filters the money tracker ledger and pivots it into a
// date by budget item matrix.
package aggregate

import (
	"fmt"
	"strings"

	"keuangan/internal/core"
	"keuangan/internal/sheets"
)

// LedgerColumns maps ledger fields onto sheet headers. The defaults keep
// the spelling used in the workbook.
type LedgerColumns struct {
	Date     string `yaml:"date"`
	Type     string `yaml:"type"`
	Amount   string `yaml:"amount"`
	Flow     string `yaml:"flow"`
	Account  string `yaml:"account"`
	Category string `yaml:"category"`
	Item     string `yaml:"item"`
	Notes    string `yaml:"notes"`
}

func DefaultLedgerColumns() LedgerColumns {
	return LedgerColumns{
		Date:     "Transaction Date",
		Type:     "Cashflow Type",
		Amount:   "Transasction Amount",
		Flow:     "Cashflow",
		Account:  "Account",
		Category: "Budget Category",
		Item:     "Budget Item",
		Notes:    "Notes",
	}
}

// WithDefaults fills empty headers from DefaultLedgerColumns.
func (c LedgerColumns) WithDefaults() LedgerColumns {
	def := DefaultLedgerColumns()
	pick := func(v, d string) string {
		if strings.TrimSpace(v) == "" {
			return d
		}
		return v
	}
	return LedgerColumns{
		Date:     pick(c.Date, def.Date),
		Type:     pick(c.Type, def.Type),
		Amount:   pick(c.Amount, def.Amount),
		Flow:     pick(c.Flow, def.Flow),
		Account:  pick(c.Account, def.Account),
		Category: pick(c.Category, def.Category),
		Item:     pick(c.Item, def.Item),
		Notes:    pick(c.Notes, def.Notes),
	}
}

// ParseLedger converts raw ledger records. Date, amount, category and item
// are required; type, flow, account and notes are read when present.
func ParseLedger(rows sheets.Rows, cols LedgerColumns) ([]core.Transaction, error) {
	if len(rows.Records) == 0 {
		return nil, nil
	}
	if err := rows.Require(cols.Date, cols.Amount, cols.Category, cols.Item); err != nil {
		return nil, &core.ParseError{Kind: "ledger", Err: err}
	}
	hasType, hasFlow := rows.Has(cols.Type), rows.Has(cols.Flow)

	out := make([]core.Transaction, 0, len(rows.Records))
	for i, rec := range rows.Records {
		date, err := core.ParseSheetDate(rec[cols.Date])
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: %w", i+1, err)
		}
		amount, err := core.ParseRupiah(rec[cols.Amount])
		if err != nil {
			return nil, fmt.Errorf("ledger row %d amount: %w", i+1, err)
		}
		tx := core.Transaction{
			Date:     date,
			Amount:   amount,
			Account:  rec[cols.Account],
			Category: rec[cols.Category],
			Item:     rec[cols.Item],
			Notes:    rec[cols.Notes],
		}
		if hasType && strings.TrimSpace(rec[cols.Type]) != "" {
			if tx.Type, err = core.ParseCashFlowType(rec[cols.Type]); err != nil {
				return nil, fmt.Errorf("ledger row %d: %w", i+1, err)
			}
		}
		if hasFlow && strings.TrimSpace(rec[cols.Flow]) != "" {
			if tx.Flow, err = core.ParseRupiah(rec[cols.Flow]); err != nil {
				return nil, fmt.Errorf("ledger row %d flow: %w", i+1, err)
			}
		}
		out = append(out, tx)
	}
	return out, nil
}

// Filter keeps transactions of category whose date falls in p, in ledger
// order.
func Filter(ledger []core.Transaction, category string, p core.Period) ([]core.Transaction, error) {
	start, end, err := p.Range()
	if err != nil {
		return nil, err
	}
	var out []core.Transaction
	for _, tx := range ledger {
		if tx.Category != category {
			continue
		}
		if tx.Date.Before(start) || !tx.Date.Before(end) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}
