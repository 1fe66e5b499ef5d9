package core

import (
	"fmt"
	"strings"
	"time"
)

// MonthNames is the canonical, ordered month vocabulary used by the
// period selector.
var MonthNames = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

const (
	minYear = 1900
	maxYear = 9999
)

// Period is a calendar month selection.
type Period struct {
	Year  int
	Month string
}

// NewPeriod validates month and year. Month matching ignores case and
// surrounding whitespace; the stored name is the canonical one.
func NewPeriod(year int, month string) (Period, error) {
	idx := monthIndex(month)
	if idx < 0 || year < minYear || year > maxYear {
		return Period{}, &InvalidPeriodError{Month: month, Year: year}
	}
	return Period{Year: year, Month: MonthNames[idx]}, nil
}

// CurrentPeriod returns the period containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: MonthNames[now.Month()-1]}
}

// PeriodOf returns the period for a 1-based month number.
func PeriodOf(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, &InvalidPeriodError{Month: fmt.Sprint(month), Year: year}
	}
	return NewPeriod(year, MonthNames[month-1])
}

// MonthNumber returns the 1-based month, or 0 for an invalid period.
func (p Period) MonthNumber() int {
	return monthIndex(p.Month) + 1
}

// Validate reports whether p could have been built by NewPeriod.
func (p Period) Validate() error {
	_, err := NewPeriod(p.Year, p.Month)
	return err
}

// Range resolves p to the half-open interval [start, end) in UTC.
func (p Period) Range() (start, end time.Time, err error) {
	m := p.MonthNumber()
	if m == 0 || p.Year < minYear || p.Year > maxYear {
		return time.Time{}, time.Time{}, &InvalidPeriodError{Month: p.Month, Year: p.Year}
	}
	start = time.Date(p.Year, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end, nil
}

// Contains reports whether t's calendar date falls inside the period.
func (p Period) Contains(t time.Time) bool {
	start, end, err := p.Range()
	if err != nil {
		return false
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(start) && d.Before(end)
}

// Key is a stable identifier used for cache keys and storage rows.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.MonthNumber())
}

func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// ParsePeriodKey is the inverse of Key.
func ParsePeriodKey(key string) (Period, error) {
	var y, m int
	if _, err := fmt.Sscanf(key, "%04d-%02d", &y, &m); err != nil {
		return Period{}, &InvalidPeriodError{Month: key}
	}
	return PeriodOf(y, m)
}

func monthIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, m := range MonthNames {
		if strings.EqualFold(m, name) {
			return i
		}
	}
	return -1
}
