// Package ingest posts new transactions to the workbook's append endpoint
// (an Apps Script web app that writes one row to the money tracker).
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"keuangan/internal/core"

	"github.com/google/uuid"
)

// DefaultSheetName is the ledger tab the endpoint appends to.
const DefaultSheetName = "Money Tracker"

const timestampLayout = "02/01/2006 15:04:05"

var ErrInvalidTransaction = errors.New("invalid transaction")

// StatusError carries a non-200 answer of the endpoint verbatim.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ingest: http %d: %s", e.Status, e.Body)
}

type Client struct {
	url       string
	sheetName string
	http      *http.Client
	now       func() time.Time
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithSheetName(name string) Option { return func(c *Client) { c.sheetName = name } }

// WithClock sets the source of the row timestamp.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:       url,
		sheetName: DefaultSheetName,
		http:      &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type payload struct {
	SheetName string `json:"sheetName"`
	RowData   []any  `json:"rowData"`
}

// Validate checks the fields the form requires.
func Validate(tx core.Transaction) error {
	var errs []string
	if tx.Date.IsZero() {
		errs = append(errs, "date is required")
	}
	if !tx.Type.Valid() {
		errs = append(errs, fmt.Sprintf("unknown cash flow type %q", tx.Type))
	}
	if tx.Amount.Sign() <= 0 {
		errs = append(errs, "amount must be positive")
	}
	if strings.TrimSpace(tx.Category) == "" {
		errs = append(errs, "budget category is required")
	}
	if strings.TrimSpace(tx.Item) == "" {
		errs = append(errs, "budget item is required")
	}
	if strings.TrimSpace(tx.Account) == "" {
		errs = append(errs, "account is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTransaction, strings.Join(errs, "; "))
	}
	return nil
}

// Row builds the row in ledger column order. The fifth column is a sheet
// formula and is sent empty.
func (c *Client) Row(tx core.Transaction) []any {
	return []any{
		c.now().Format(timestampLayout),
		tx.Date.Format(core.SheetDateLayout),
		string(tx.Type),
		json.Number(tx.Amount.String()),
		"",
		tx.Account,
		tx.Category,
		tx.Item,
		tx.Notes,
	}
}

// Append posts one transaction. Any status other than 200 is returned as
// a *StatusError.
func (c *Client) Append(ctx context.Context, tx core.Transaction) error {
	if err := Validate(tx); err != nil {
		return err
	}
	body, err := json.Marshal(payload{SheetName: c.sheetName, RowData: c.Row(tx)})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{Status: resp.StatusCode, Body: string(b)}
	}
	slog.InfoContext(ctx, "Transaction appended",
		"date", tx.Date.Format(core.SheetDateLayout),
		"category", tx.Category,
		"item", tx.Item)
	return nil
}
