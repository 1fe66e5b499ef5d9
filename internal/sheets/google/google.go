package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"keuangan/internal/core"
	ports "keuangan/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads the budget workbook through the Sheets v4 values API.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	layout        ports.Layout
}

// Ensure interface conformance
var _ ports.Worksheet = (*Client)(nil)

// Credentials holds the service account key, inline or as a file path.
type Credentials struct {
	JSON string
	File string
}

// New creates a client authenticated with a service account.
func New(ctx context.Context, spreadsheetID string, creds Credentials, layout ports.Layout) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, layout), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID string, layout ports.Layout) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, layout: layout}
}

func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	var (
		credentialsJSON []byte
		err             error
	)
	switch {
	case strings.TrimSpace(creds.JSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(creds.JSON)
	case strings.TrimSpace(creds.File) != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", creds.File)
		credentialsJSON, err = os.ReadFile(creds.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadTable reads the layout range of t with formatted values, so currency
// cells arrive exactly as displayed ("Rp 1.234.567,00").
func (c *Client) ReadTable(ctx context.Context, p core.Period, t ports.Table) (ports.Rows, error) {
	if c.svc == nil {
		return ports.Rows{}, errors.New("sheets service not initialized")
	}
	rng, err := c.layout.A1(p, t)
	if err != nil {
		return ports.Rows{}, err
	}
	values, err := c.get(ctx, rng)
	if err != nil {
		return ports.Rows{}, err
	}
	rows := ports.FromAny(values)
	slog.DebugContext(ctx, "Read table", "table", t, "range", rng, "records", rows.Len())
	return rows, nil
}

// ReadValue reads the top-left cell of a named range.
func (c *Client) ReadValue(ctx context.Context, p core.Period, n ports.Name) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	ref := c.layout.ValueRef(p, n)
	values, err := c.get(ctx, ref)
	if err != nil {
		return "", err
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return "", nil
	}
	return strings.TrimSpace(fmt.Sprint(values[0][0])), nil
}

func (c *Client) get(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
