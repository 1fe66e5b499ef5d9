package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	gsheet "keuangan/internal/sheets/google"
	"keuangan/internal/sheets/memory"
	"keuangan/internal/sheets/xlsx"
	"keuangan/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

var _ Factory = (*DefaultFactory)(nil)

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case XLSXBackend:
		return f.createXLSXBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Worksheet: repo, Ping: repo.Ping, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleCredentials, config.Layout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &Result{Worksheet: cli, Ping: noPing, Cleanup: noCleanup}, nil
}

func (f *DefaultFactory) createXLSXBackend(config Config) (*Result, error) {
	path := config.XLSXPath
	f.logger.Info("Initialized workbook backend", "path", path)
	return &Result{
		Worksheet: xlsx.New(path, config.Layout),
		Ping: func(context.Context) error {
			_, err := os.Stat(path)
			return err
		},
		Cleanup: noCleanup,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	if config.MemoryFixture == "" {
		f.logger.Info("Initialized memory backend with demo workbook")
		return &Result{Worksheet: memory.NewDemo(), Ping: noPing, Cleanup: noCleanup}, nil
	}
	store, err := memory.NewFromFile(config.MemoryFixture)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory fixture: %w", err)
	}
	f.logger.Info("Initialized memory backend", "fixture", config.MemoryFixture)
	return &Result{Worksheet: store, Ping: noPing, Cleanup: noCleanup}, nil
}

func noPing(context.Context) error { return nil }

func noCleanup() error { return nil }
