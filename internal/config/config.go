package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backends accepted in DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendGoogle = "google"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection
	DataBackend    string
	MemorySeedFile string

	// Google Sheets and Drive
	GoogleSpreadsheetID          string
	GoogleDriveParentFolderID    string
	GoogleServiceAccountJSON     string
	GoogleServiceAccountFile     string
	GoogleApplicationCredentials string
	GoogleOAuthClientFile        string
	GoogleOAuthTokenFile         string
	GoogleOAuthClientJSON        string
	GoogleOAuthTokenJSON         string

	// Sheet layout
	Pieces          []string
	PieceListRange  string
	PieceListTTL    time.Duration
	AttendanceRange string
	NameColumn      string
	CategoryColumn  string

	// Report
	ReportSheetTitle  string
	ReportSecret      string
	ReportSortByName  bool
	ReportConcurrency int
	RulesFile         string

	// Database (run history, optional)
	SQLiteDBPath string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	ReportInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:    getEnv("DATA_BACKEND", BackendMemory),
		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),

		GoogleSpreadsheetID:          getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleDriveParentFolderID:    getEnv("GOOGLE_DRIVE_PARENT_FOLDER_ID", ""),
		GoogleServiceAccountJSON:     getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:     getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleOAuthClientFile:        getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:         getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON:        getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:         getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		Pieces:          getEnvList("PIECES"),
		PieceListRange:  getEnv("PIECE_LIST_RANGE", "CONFIG!A:A"),
		PieceListTTL:    getEnvDuration("PIECE_LIST_TTL", 5*time.Minute),
		AttendanceRange: getEnv("ATTENDANCE_RANGE", "A2:H"),
		NameColumn:      getEnv("NAME_COLUMN", "B"),
		CategoryColumn:  getEnv("CATEGORY_COLUMN", "E"),

		ReportSheetTitle:  getEnv("REPORT_SHEET_TITLE", "벌금_정산"),
		ReportSecret:      getEnv("REPORT_SECRET", ""),
		ReportSortByName:  getEnvBool("REPORT_SORT_BY_NAME", true),
		ReportConcurrency: getEnvInt("REPORT_CONCURRENCY", 4),
		RulesFile:         getEnv("RULES_FILE", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ensemble"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_runs"),

		ReportInterval: getEnvDuration("REPORT_INTERVAL", 0),
	}

	return cfg
}

// HasServiceAccount reports whether service account credentials are set.
func (c *Config) HasServiceAccount() bool {
	return c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "" || c.GoogleApplicationCredentials != ""
}

// HasOAuth reports whether both an OAuth client and a token are set.
func (c *Config) HasOAuth() bool {
	return (c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != "") &&
		(c.GoogleOAuthTokenFile != "" || c.GoogleOAuthTokenJSON != "")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Validate data backend
	validBackends := []string{BackendMemory, BackendGoogle}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendGoogle {
		errors = append(errors, c.validateGoogle()...)
	}

	for name, col := range map[string]string{"NAME_COLUMN": c.NameColumn, "CATEGORY_COLUMN": c.CategoryColumn} {
		if !isColumn(col) {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be a column letter", name, col))
		}
	}
	if strings.TrimSpace(c.AttendanceRange) == "" {
		errors = append(errors, "ATTENDANCE_RANGE cannot be empty")
	}
	if c.PieceListTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid piece list ttl %v: must not be negative", c.PieceListTTL))
	}

	if strings.TrimSpace(c.ReportSheetTitle) == "" {
		errors = append(errors, "REPORT_SHEET_TITLE cannot be empty")
	}
	if c.ReportConcurrency < 1 || c.ReportConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid report concurrency %d: must be between 1 and 32", c.ReportConcurrency))
	}
	if c.RulesFile != "" {
		if _, err := os.Stat(c.RulesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("rules file does not exist: %s", c.RulesFile))
		}
	}

	// Validate AMQP URL if provided
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

	if c.ReportInterval != 0 {
		if c.ReportInterval < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid report interval %v: must be at least 1 minute", c.ReportInterval))
		} else if c.ReportInterval > 7*24*time.Hour {
			errors = append(errors, fmt.Sprintf("invalid report interval %v: must be at most 7 days", c.ReportInterval))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func (c *Config) validateGoogle() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using google backend")
	}
	if c.GoogleDriveParentFolderID == "" {
		errors = append(errors, "Google Drive parent folder ID is required when using google backend")
	}
	if !c.HasServiceAccount() && !c.HasOAuth() {
		errors = append(errors, "either a service account (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS) or an OAuth client and token must be provided for google backend")
	}
	if len(c.Pieces) == 0 && strings.TrimSpace(c.PieceListRange) == "" {
		errors = append(errors, "either PIECES or PIECE_LIST_RANGE must be set for google backend")
	}

	for label, path := range map[string]string{
		"Google service account file":         c.GoogleServiceAccountFile,
		"Google application credentials file": c.GoogleApplicationCredentials,
		"Google OAuth client file":            c.GoogleOAuthClientFile,
		"Google OAuth token file":             c.GoogleOAuthTokenFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("%s does not exist: %s", label, path))
		}
	}
	return errors
}

func isColumn(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 3 {
		return false
	}
	for _, r := range strings.ToUpper(s) {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
