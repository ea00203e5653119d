package backend

import (
	"context"
	"time"

	"ensemble/internal/services"
	"ensemble/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the collaborators of the report service and an
// optional cleanup function
type BackendResult struct {
	Deps services.Deps
	// History is nil when run history is disabled.
	History *storage.SQLiteRepository
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Run history, optional for every backend
	SQLiteDBPath string

	// Google specific
	GoogleSpreadsheetID       string
	GoogleDriveParentFolderID string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleOAuthClientFile     string
	GoogleOAuthTokenFile      string
	GoogleOAuthClientJSON     string
	GoogleOAuthTokenJSON      string
	AttendanceRange           string
	NameColumn                string
	CategoryColumn            string
	PieceListRange            string

	// Pieces overrides the piece list read from the spreadsheet.
	Pieces       []string
	PieceListTTL time.Duration

	// Memory backend specific
	MemorySeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	GoogleBackend BackendType = "google"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case GoogleBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
