package backend

import (
	"fmt"

	"keuangan/internal/config"
	gsheet "keuangan/internal/sheets/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, layout config.Layout) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		MemoryFixture: appConfig.MemoryFixture,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		XLSXPath:      appConfig.XLSXPath,

		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleCredentials: gsheet.Credentials{
			JSON: appConfig.GoogleServiceAccountJSON,
			File: appConfig.GoogleServiceAccountFile,
		},

		Layout: layout.Layout,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case XLSXBackend:
		if c.XLSXPath == "" {
			return fmt.Errorf("workbook path is required for xlsx backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleCredentials.JSON == "" && c.GoogleCredentials.File == "" {
			return fmt.Errorf("service account credentials are required for sheets backend")
		}
	}
	if c.Type != SQLiteBackend && c.Type != MemoryBackend {
		if err := c.Layout.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SheetsBackend, SQLiteBackend, XLSXBackend}
}
