package sheets

import (
	"fmt"
	"strings"
)

// Record is one data row keyed by header.
type Record map[string]string

// Rows is a table as read from the worksheet: the header in sheet order
// and one record per non-empty data row.
type Rows struct {
	Header  []string
	Records []Record
}

// Len returns the number of records.
func (r Rows) Len() int { return len(r.Records) }

// Has reports whether the header contains col.
func (r Rows) Has(col string) bool {
	return indexOf(r.Header, col) >= 0
}

// Require returns an error naming every missing column.
func (r Rows) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !r.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns %s; got headers=%v", strings.Join(missing, ","), r.Header)
	}
	return nil
}

// Values renders r back into a matrix, header first.
func (r Rows) Values() [][]string {
	out := make([][]string, 0, len(r.Records)+1)
	out = append(out, append([]string(nil), r.Header...))
	for _, rec := range r.Records {
		row := make([]string, len(r.Header))
		for i, h := range r.Header {
			row[i] = rec[h]
		}
		out = append(out, row)
	}
	return out
}

// FromValues converts a value matrix whose first row is the header.
// Trailing empty header cells are dropped, rows with no content are
// skipped and short rows are padded with empty strings.
func FromValues(values [][]string) Rows {
	if len(values) == 0 {
		return Rows{}
	}
	header := trimTrailingEmpty(values[0])
	rows := Rows{Header: header}
	for _, raw := range values[1:] {
		if blank(raw) {
			continue
		}
		rec := make(Record, len(header))
		for i, h := range header {
			rec[h] = safeGet(raw, i)
		}
		rows.Records = append(rows.Records, rec)
	}
	return rows
}

// FromAny is FromValues for the []interface{} matrices returned by the
// Sheets API.
func FromAny(values [][]interface{}) Rows {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = toStrings(row)
	}
	return FromValues(out)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func trimTrailingEmpty(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(v)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return strings.TrimSpace(arr[idx])
}
