// Package core provides money parsing and handling utilities.
//
// This file contains the Rupiah normalizer used for every currency column
// read from the budget spreadsheet, plus its inverse formatter.
package core

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const currencyPrefix = "Rp"

// ParseRupiah converts a locale formatted Rupiah string into a decimal.
//
// The sheet uses "." as thousands separator and "," as decimal separator,
// prefixed by "Rp". The prefix and any whitespace are stripped, every "."
// is removed and "," becomes the decimal point. A missing fractional part
// is zero. A leading minus, before or after the prefix, yields a negative
// amount (ledger rows are signed).
//
// Examples:
//
//	ParseRupiah("Rp 1.234.567,00") -> 1234567
//	ParseRupiah("Rp 2.500")        -> 2500
//	ParseRupiah("-Rp 5.000,50")    -> -5000.5
func ParseRupiah(s string) (decimal.Decimal, error) {
	in := s
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, &ParseError{Kind: "currency", Input: in, Err: errors.New("empty value")}
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	s = strings.TrimPrefix(s, currencyPrefix)
	if !neg && strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	s = strings.ReplaceAll(s, ".", "")
	intPart, fracPart, hasFrac := strings.Cut(s, ",")
	if intPart == "" || !allDigits(intPart) {
		return decimal.Zero, &ParseError{Kind: "currency", Input: in, Err: errors.New("malformed integer part")}
	}
	if hasFrac && (fracPart == "" || !allDigits(fracPart)) {
		return decimal.Zero, &ParseError{Kind: "currency", Input: in, Err: errors.New("malformed fractional part")}
	}

	num := intPart
	if hasFrac {
		num += "." + fracPart
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, &ParseError{Kind: "currency", Input: in, Err: err}
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// FormatRupiah renders d with the sheet's convention, e.g. "Rp 1.234.567,00".
// Values are rounded half away from zero to two decimals.
func FormatRupiah(d decimal.Decimal) string {
	neg := d.Sign() < 0
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(currencyPrefix)
	b.WriteByte(' ')
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
