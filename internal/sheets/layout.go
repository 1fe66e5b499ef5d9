package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"keuangan/internal/core"
)

// Placeholders accepted in sheet names.
const (
	MonthPlaceholder = "{month}"
	YearPlaceholder  = "{year}"
)

// TableLayout locates a logical table in the workbook.
type TableLayout struct {
	// Sheet is the tab name. It may contain {month} and {year}, which are
	// replaced by the requested period.
	Sheet string `yaml:"sheet"`
	// Range is an A1 range inside Sheet, e.g. "B2:E20". Empty means the
	// whole sheet starting at A1.
	Range string `yaml:"range"`
}

// Layout maps logical tables and named values onto the workbook.
type Layout struct {
	Tables map[Table]TableLayout `yaml:"tables"`
	// Values overrides the reference of a named value, e.g.
	// "Overview!C3". Names without an entry are read by name.
	Values map[Name]string `yaml:"values"`
}

// DefaultLayout mirrors the family budget workbook.
func DefaultLayout() Layout {
	return Layout{
		Tables: map[Table]TableLayout{
			Accounts:         {Sheet: "Accounts State"},
			CashFlow:         {Sheet: "Monthly Overview", Range: "B4:F10"},
			CategoryOverview: {Sheet: "Monthly Overview", Range: "H4:K40"},
			MonthlyPlanning:  {Sheet: "Monthly Planning"},
			MoneyTracker:     {Sheet: "Money Tracker"},
			AnnualPlanning:   {Sheet: "Annual Planning"},
		},
		Values: map[Name]string{},
	}
}

// Merge fills every table or value missing from l with the one in def.
func (l Layout) Merge(def Layout) Layout {
	out := Layout{Tables: map[Table]TableLayout{}, Values: map[Name]string{}}
	for t, tl := range def.Tables {
		out.Tables[t] = tl
	}
	for t, tl := range l.Tables {
		if tl.Sheet == "" {
			tl.Sheet = out.Tables[t].Sheet
		}
		out.Tables[t] = tl
	}
	for n, ref := range def.Values {
		out.Values[n] = ref
	}
	for n, ref := range l.Values {
		if strings.TrimSpace(ref) != "" {
			out.Values[n] = ref
		}
	}
	return out
}

// Validate reports tables with no sheet and unknown keys.
func (l Layout) Validate() error {
	var errs []string
	for _, t := range Tables() {
		tl, ok := l.Tables[t]
		if !ok || strings.TrimSpace(tl.Sheet) == "" {
			errs = append(errs, fmt.Sprintf("table %s has no sheet", t))
		}
	}
	for t := range l.Tables {
		if !knownTable(t) {
			errs = append(errs, fmt.Sprintf("unknown table %q", t))
		}
	}
	for n := range l.Values {
		if !knownName(n) {
			errs = append(errs, fmt.Sprintf("unknown named value %q", n))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("layout: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SheetName resolves the tab holding t for period p.
func (l Layout) SheetName(p core.Period, t Table) (string, error) {
	tl, ok := l.Tables[t]
	if !ok || tl.Sheet == "" {
		return "", fmt.Errorf("no layout for table %s", t)
	}
	return expand(tl.Sheet, p), nil
}

// A1 returns the fully qualified A1 reference of t for period p.
func (l Layout) A1(p core.Period, t Table) (string, error) {
	name, err := l.SheetName(p, t)
	if err != nil {
		return "", err
	}
	rng := strings.TrimSpace(l.Tables[t].Range)
	if rng == "" {
		return QuoteSheet(name), nil
	}
	return QuoteSheet(name) + "!" + rng, nil
}

// ValueRef returns the reference used to read n for period p.
func (l Layout) ValueRef(p core.Period, n Name) string {
	if ref, ok := l.Values[n]; ok && strings.TrimSpace(ref) != "" {
		return expand(ref, p)
	}
	return string(n)
}

// QuoteSheet wraps a sheet name in single quotes as A1 notation requires
// for names with spaces or punctuation.
func QuoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// SplitRef splits "Sheet!B2:C3" (sheet optionally quoted) into its parts.
func SplitRef(ref string) (sheet, rng string) {
	i := strings.LastIndex(ref, "!")
	if i < 0 {
		return "", ref
	}
	sheet = ref[:i]
	if len(sheet) >= 2 && strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	return sheet, ref[i+1:]
}

func expand(s string, p core.Period) string {
	s = strings.ReplaceAll(s, MonthPlaceholder, p.Month)
	return strings.ReplaceAll(s, YearPlaceholder, strconv.Itoa(p.Year))
}

func knownTable(t Table) bool {
	for _, k := range Tables() {
		if k == t {
			return true
		}
	}
	return false
}

func knownName(n Name) bool {
	for _, k := range Names() {
		if k == n {
			return true
		}
	}
	return false
}
