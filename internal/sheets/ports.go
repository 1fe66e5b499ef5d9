package sheets

import (
	"context"
	"time"

	"keuangan/internal/core"
)

// Table identifies one logical table of the budget workbook.
type Table string

const (
	Accounts         Table = "accounts"
	CashFlow         Table = "cash_flow"
	CategoryOverview Table = "category_overview"
	MonthlyPlanning  Table = "monthly_planning"
	MoneyTracker     Table = "money_tracker"
	AnnualPlanning   Table = "annual_planning"
)

// Tables lists every logical table in mirror order.
func Tables() []Table {
	return []Table{Accounts, CashFlow, CategoryOverview, MonthlyPlanning, MoneyTracker, AnnualPlanning}
}

// Valid reports whether t is one of Tables.
func (t Table) Valid() bool {
	for _, known := range Tables() {
		if t == known {
			return true
		}
	}
	return false
}

// Name identifies a single-cell named range.
type Name string

const (
	TotalSaved   Name = "Total_This_Month_Saving"
	Unallocated  Name = "Unallocated"
	TotalHolding Name = "Total_Holding"
)

func Names() []Name {
	return []Name{TotalSaved, Unallocated, TotalHolding}
}

// Snapshot is every table and named value of one period, as copied by the
// mirror.
type Snapshot struct {
	Tables []TableSnapshot
	Values []ValueSnapshot
}

type TableSnapshot struct {
	Table Table
	Rows  Rows
}

type ValueSnapshot struct {
	Name  Name
	Value string
}

// Ports for outbound adapters.
type (
	// TableReader returns the raw records of a logical table for a period.
	// Values are the displayed cell strings, no coercion is applied.
	TableReader interface {
		ReadTable(ctx context.Context, p core.Period, t Table) (Rows, error)
	}

	// ValueReader returns the displayed value of a named range.
	ValueReader interface {
		ReadValue(ctx context.Context, p core.Period, n Name) (string, error)
	}

	Worksheet interface {
		TableReader
		ValueReader
	}

	// SnapshotWriter replaces the stored copy of a table or value. Used by
	// the mirror to fill the sqlite store.
	SnapshotWriter interface {
		WriteTable(ctx context.Context, p core.Period, t Table, rows Rows) error
		WriteValue(ctx context.Context, p core.Period, n Name, value string) error
	}

	// SnapshotBatchWriter stores a whole snapshot atomically: either every
	// table and value of p is replaced or none is.
	SnapshotBatchWriter interface {
		WriteSnapshot(ctx context.Context, p core.Period, snap Snapshot) error
	}

	// RefreshReporter tells when the stored copy of p was last replaced.
	RefreshReporter interface {
		LastRefreshed(ctx context.Context, p core.Period) (time.Time, error)
	}
)
