package backend

import (
	"fmt"

	"ensemble/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	serviceAccountFile := appConfig.GoogleServiceAccountFile
	if serviceAccountFile == "" && appConfig.GoogleServiceAccountJSON == "" && !appConfig.HasOAuth() {
		serviceAccountFile = appConfig.GoogleApplicationCredentials
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		GoogleSpreadsheetID:       appConfig.GoogleSpreadsheetID,
		GoogleDriveParentFolderID: appConfig.GoogleDriveParentFolderID,
		GoogleServiceAccountJSON:  appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile:  serviceAccountFile,
		GoogleOAuthClientFile:     appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:      appConfig.GoogleOAuthTokenFile,
		GoogleOAuthClientJSON:     appConfig.GoogleOAuthClientJSON,
		GoogleOAuthTokenJSON:      appConfig.GoogleOAuthTokenJSON,
		AttendanceRange:           appConfig.AttendanceRange,
		NameColumn:                appConfig.NameColumn,
		CategoryColumn:            appConfig.CategoryColumn,
		PieceListRange:            appConfig.PieceListRange,

		Pieces:       appConfig.Pieces,
		PieceListTTL: appConfig.PieceListTTL,

		MemorySeedFile: appConfig.MemorySeedFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case GoogleBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for google backend")
		}
		if c.GoogleDriveParentFolderID == "" {
			return fmt.Errorf("Google Drive parent folder ID is required for google backend")
		}
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		hasClient := c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != ""
		hasToken := c.GoogleOAuthTokenFile != "" || c.GoogleOAuthTokenJSON != ""
		if !hasServiceAccount && !(hasClient && hasToken) {
			return fmt.Errorf("either a service account or an OAuth client and token must be provided for google backend")
		}

	case MemoryBackend:
		// A missing seed file falls back to the default pieces.
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, GoogleBackend}
}
