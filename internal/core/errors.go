package core

import (
	"errors"
	"fmt"
)

var (
	ErrParse          = errors.New("parse error")
	ErrInvalidPeriod  = errors.New("invalid period")
	ErrFetch          = errors.New("fetch error")
	ErrClassification = errors.New("classification error")
)

// ParseError reports a currency, date or enum string that does not match
// the format the backing sheet is expected to use.
type ParseError struct {
	Kind  string // "currency", "date", "cash flow type", ...
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s %q: %v", e.Kind, e.Input, e.Err)
	}
	return fmt.Sprintf("parse %s %q", e.Kind, e.Input)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrParse, e.Err}
	}
	return []error{ErrParse}
}

// InvalidPeriodError reports an unknown month name or an out of range year.
type InvalidPeriodError struct {
	Month string
	Year  int
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period: month=%q year=%d", e.Month, e.Year)
}

func (e *InvalidPeriodError) Unwrap() error { return ErrInvalidPeriod }

// FetchError wraps a failure of the backing store for one logical table
// or named range.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// ClassificationError is returned when a row carries a cash flow type with
// no remark rule.
type ClassificationError struct {
	Type CashFlowType
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("no classification rule for cash flow type %q", string(e.Type))
}

func (e *ClassificationError) Unwrap() error { return ErrClassification }
