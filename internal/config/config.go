package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Data backends.
const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendXLSX   = "xlsx"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend   string
	MemoryFixture string

	// Database
	SQLiteDBPath string

	// Offline workbook
	XLSXPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worksheet layout (YAML); empty uses the built-in layout
	LayoutFile string

	// Transaction ingestion endpoint
	IngestURL string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mirror worker
	MirrorSchedule string
	MirrorTimezone string

	// Record fetcher
	CacheTTL     time.Duration
	CacheSize    int
	FetchTimeout time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:   getEnv("DATA_BACKEND", BackendMemory),
		MemoryFixture: getEnv("MEMORY_FIXTURE", ""),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/keuangan.db"),
		XLSXPath:      getEnv("XLSX_PATH", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		LayoutFile: getEnv("LAYOUT_FILE", ""),
		IngestURL:  getEnv("INGEST_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "keuangan"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "keuangan.api"),

		MirrorSchedule: getEnv("MIRROR_SCHEDULE", "*/15 * * * *"),
		MirrorTimezone: getEnv("MIRROR_TIMEZONE", "Asia/Jakarta"),

		CacheTTL:     getEnvDuration("CACHE_TTL", 10*time.Minute),
		CacheSize:    getEnvInt("CACHE_SIZE", 64),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 20*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSheets, BackendSQLite, BackendXLSX}
	valid := false
	for _, b := range validBackends {
		if c.DataBackend == b {
			valid = true
			break
		}
	}
	if !valid {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendMemory:
		if c.MemoryFixture != "" {
			errors = append(errors, fileMustExist("memory fixture", c.MemoryFixture)...)
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendXLSX:
		if c.XLSXPath == "" {
			errors = append(errors, "XLSX_PATH is required when using xlsx backend")
		} else {
			errors = append(errors, fileMustExist("workbook", c.XLSXPath)...)
		}
	case BackendSheets:
		errors = append(errors, c.validateSheets()...)
	}

	if c.LayoutFile != "" {
		errors = append(errors, fileMustExist("layout file", c.LayoutFile)...)
	}

	if c.IngestURL != "" {
		if u, err := url.Parse(c.IngestURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid ingest URL '%s': must be an absolute http(s) URL", c.IngestURL))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheSize < 1 || c.CacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be between 1 and 10000", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.FetchTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must not be negative", c.FetchTimeout))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateMirror checks the settings only the mirror worker needs.
func (c *Config) ValidateMirror() error {
	var errors []string
	errors = append(errors, c.validateSheets()...)
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLITE_DB_PATH is required for the mirror")
	}
	if _, err := cron.ParseStandard(c.MirrorSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid mirror schedule '%s': %v", c.MirrorSchedule, err))
	}
	if _, err := time.LoadLocation(c.MirrorTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid mirror timezone '%s': %v", c.MirrorTimezone, err))
	}
	if len(errors) > 0 {
		return fmt.Errorf("mirror configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
	}
	if c.GoogleServiceAccountFile != "" && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, fileMustExist("service account file", c.GoogleServiceAccountFile)...)
	}
	return errors
}

// ParseLogLevel maps LOG_LEVEL onto slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", s)
}

func fileMustExist(what, path string) []string {
	if _, err := os.Stat(filepath.Clean(path)); os.IsNotExist(err) {
		return []string{fmt.Sprintf("%s does not exist: %s", what, path)}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
