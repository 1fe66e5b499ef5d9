// Package backend builds the worksheet the record fetcher reads from.
package backend

import (
	"context"

	"keuangan/internal/sheets"
	gsheet "keuangan/internal/sheets/google"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is a ready worksheet plus its lifecycle hooks. Ping and Cleanup
// are never nil.
type Result struct {
	Worksheet sheets.Worksheet
	Ping      func(ctx context.Context) error
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory: YAML fixture, empty serves the demo workbook
	MemoryFixture string

	// SQLite mirror store
	SQLiteDBPath string

	// Offline workbook
	XLSXPath string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleCredentials   gsheet.Credentials

	Layout sheets.Layout
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
	SQLiteBackend BackendType = "sqlite"
	XLSXBackend   BackendType = "xlsx"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SheetsBackend, SQLiteBackend, XLSXBackend:
		return true
	default:
		return false
	}
}
