// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: period selection from query strings and the transaction body.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"keuangan/internal/core"
	"keuangan/internal/ingest"
)

const maxBodyBytes = 16 << 10

// PeriodParams parses ?year=&month= into a period. Month is a name
// ("Desember", case-insensitive) or a number 1-12. ok is false when
// neither parameter is present.
func PeriodParams(query url.Values) (p core.Period, ok bool, err error) {
	yearStr := strings.TrimSpace(query.Get("year"))
	monthStr := strings.TrimSpace(query.Get("month"))
	if yearStr == "" && monthStr == "" {
		return core.Period{}, false, nil
	}
	if yearStr == "" || monthStr == "" {
		return core.Period{}, true, fmt.Errorf("%w: year and month are both required", core.ErrInvalidPeriod)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return core.Period{}, true, fmt.Errorf("%w: year %q", core.ErrInvalidPeriod, yearStr)
	}
	p, err = parsePeriod(year, monthStr)
	return p, true, err
}

func parsePeriod(year int, month string) (core.Period, error) {
	if m, err := strconv.Atoi(month); err == nil {
		return core.PeriodOf(year, m)
	}
	return core.NewPeriod(year, month)
}

// periodRequest is the body of PUT /api/period.
type periodRequest struct {
	Year  int    `json:"year"`
	Month string `json:"month"`
}

// DecodePeriod reads a period selection body.
func DecodePeriod(r *http.Request) (core.Period, error) {
	var req periodRequest
	if err := decodeJSON(r, &req); err != nil {
		return core.Period{}, fmt.Errorf("%w: %v", core.ErrInvalidPeriod, err)
	}
	return parsePeriod(req.Year, sanitizeInput(req.Month))
}

// Amount accepts a JSON number or a Rupiah string ("Rp 150.000").
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := core.ParseRupiah(s)
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}
	return a.Decimal.UnmarshalJSON(b)
}

// transactionRequest is the body of POST /api/transactions.
type transactionRequest struct {
	Date     string `json:"date"`
	Type     string `json:"type"`
	Amount   Amount `json:"amount"`
	Account  string `json:"account"`
	Category string `json:"category"`
	Item     string `json:"item"`
	Notes    string `json:"notes"`
}

// dateLayouts are tried in order for the transaction date.
var dateLayouts = []string{"2006-01-02", core.SheetDateLayout}

// DecodeTransaction reads and validates a transaction body. Every failure
// wraps ingest.ErrInvalidTransaction.
func DecodeTransaction(r *http.Request) (core.Transaction, error) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ingest.ErrInvalidTransaction, err)
	}

	tx := core.Transaction{
		Amount:   req.Amount.Decimal,
		Account:  sanitizeInput(req.Account),
		Category: sanitizeInput(req.Category),
		Item:     sanitizeInput(req.Item),
		Notes:    sanitizeInput(req.Notes),
	}
	if req.Type != "" {
		t, err := core.ParseCashFlowType(req.Type)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%w: %v", ingest.ErrInvalidTransaction, err)
		}
		tx.Type = t
	}
	if d := strings.TrimSpace(req.Date); d != "" {
		date, err := parseDate(d)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%w: date %q", ingest.ErrInvalidTransaction, d)
		}
		tx.Date = date
	}
	if err := ingest.Validate(tx); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// decodeJSON decodes a single JSON object, rejecting unknown fields and
// bodies over maxBodyBytes.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	if dec.More() {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
