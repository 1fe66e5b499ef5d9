package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/ingest"
)

func TestPeriodParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    core.Period
		ok      bool
		wantErr bool
	}{
		{name: "absent", query: "", ok: false},
		{name: "month name", query: "year=2025&month=desember", want: core.Period{Year: 2025, Month: "Desember"}, ok: true},
		{name: "month number", query: "year=2026&month=1", want: core.Period{Year: 2026, Month: "Januari"}, ok: true},
		{name: "only year", query: "year=2025", ok: true, wantErr: true},
		{name: "bad year", query: "year=abc&month=Mei", ok: true, wantErr: true},
		{name: "month zero", query: "year=2025&month=0", ok: true, wantErr: true},
		{name: "unknown month", query: "year=2025&month=December", ok: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, ok, err := PeriodParams(q)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidPeriod) {
					t.Fatalf("err = %v, want invalid period", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("PeriodParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeTransaction(t *testing.T) {
	body := `{"date":"05/12/2025","type":"expense","amount":150000.5,"account":" BCA ","category":"Tagihan","item":"Listrik\u0007","notes":""}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))

	tx, err := DecodeTransaction(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.Date.Equal(time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", tx.Date)
	}
	if tx.Type != core.Expense {
		t.Errorf("Type = %q", tx.Type)
	}
	if tx.Amount.String() != "150000.5" {
		t.Errorf("Amount = %s", tx.Amount)
	}
	if tx.Account != "BCA" || tx.Item != "Listrik" {
		t.Errorf("sanitized fields = %q, %q", tx.Account, tx.Item)
	}
}

func TestDecodeTransactionErrors(t *testing.T) {
	bodies := []string{
		"",
		`{"date":"2025-13-40","type":"Expense","amount":1,"account":"a","category":"c","item":"i"}`,
		`{"date":"2025-12-01","type":"Expense","amount":"lima ribu","account":"a","category":"c","item":"i"}`,
		`{"date":"2025-12-01","type":"Expense","amount":1,"account":"a","category":"c","item":"i"}{}`,
		`{"date":"2025-12-01","type":"Expense","amount":1,"account":"a","category":"c","item":"` + strings.Repeat("x", maxBodyBytes) + `"}`,
	}
	for i, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
		if _, err := DecodeTransaction(req); !errors.Is(err, ingest.ErrInvalidTransaction) {
			t.Errorf("body %d: err = %v, want invalid transaction", i, err)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  Jajan  ":        "Jajan",
		"Makan\x00 Luar":   "Makan Luar",
		"baris\nbaru":      "baris\nbaru",
		"\x1b[31mmerah\t": "[31mmerah",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
