// Package xlsx reads the budget workbook from an exported .xlsx file, for
// offline use and fixtures.
package xlsx

import (
	"context"
	"fmt"
	"strings"

	"keuangan/internal/core"
	ports "keuangan/internal/sheets"

	"github.com/xuri/excelize/v2"
)

// Workbook opens the file on every read so an updated export is picked up
// without a restart.
type Workbook struct {
	path   string
	layout ports.Layout
}

var _ ports.Worksheet = (*Workbook)(nil)

func New(path string, layout ports.Layout) *Workbook {
	return &Workbook{path: path, layout: layout}
}

func (w *Workbook) ReadTable(_ context.Context, p core.Period, t ports.Table) (ports.Rows, error) {
	sheet, err := w.layout.SheetName(p, t)
	if err != nil {
		return ports.Rows{}, err
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return ports.Rows{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	raw, err := f.GetRows(sheet)
	if err != nil {
		return ports.Rows{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	rng := strings.TrimSpace(w.layout.Tables[t].Range)
	if rng != "" {
		raw, err = clip(raw, rng)
		if err != nil {
			return ports.Rows{}, fmt.Errorf("table %s: %w", t, err)
		}
	}
	return ports.FromValues(raw), nil
}

// ReadValue resolves an explicit cell reference from the layout, or else
// the workbook's defined name, and returns its top-left cell.
func (w *Workbook) ReadValue(_ context.Context, p core.Period, n ports.Name) (string, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	ref := w.layout.ValueRef(p, n)
	if !strings.Contains(ref, "!") {
		ref = ""
		for _, dn := range f.GetDefinedName() {
			if dn.Name == string(n) {
				ref = dn.RefersTo
				break
			}
		}
		if ref == "" {
			return "", fmt.Errorf("defined name %s not found", n)
		}
	}
	sheet, rng := ports.SplitRef(strings.TrimPrefix(ref, "="))
	cell, _, _ := strings.Cut(strings.ReplaceAll(rng, "$", ""), ":")
	v, err := f.GetCellValue(sheet, cell)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ref, err)
	}
	return strings.TrimSpace(v), nil
}

// clip cuts an A1 range such as "H4:K40" out of a full sheet matrix.
func clip(rows [][]string, rng string) ([][]string, error) {
	from, to, ok := strings.Cut(strings.ReplaceAll(rng, "$", ""), ":")
	if !ok {
		to = from
	}
	c1, r1, err := excelize.CellNameToCoordinates(from)
	if err != nil {
		return nil, err
	}
	c2, r2, err := excelize.CellNameToCoordinates(to)
	if err != nil {
		return nil, err
	}
	var out [][]string
	for r := r1; r <= r2 && r <= len(rows); r++ {
		row := rows[r-1]
		cut := make([]string, 0, c2-c1+1)
		for c := c1; c <= c2; c++ {
			if c-1 < len(row) {
				cut = append(cut, row[c-1])
			} else {
				cut = append(cut, "")
			}
		}
		out = append(out, cut)
	}
	return out, nil
}
