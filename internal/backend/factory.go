package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ensemble/internal/cache"
	"ensemble/internal/services"
	ports "ensemble/internal/sheets"
	"ensemble/internal/sheets/drive"
	"ensemble/internal/sheets/google"
	"ensemble/internal/sheets/memory"
	"ensemble/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case GoogleBackend:
		res, err = f.createGoogleBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := f.attachHistory(res, config.SQLiteDBPath); err != nil {
		return nil, err
	}
	return res, nil
}

// attachHistory opens the run history database when a path is configured.
func (f *DefaultFactory) attachHistory(res *BackendResult, dbPath string) error {
	if dbPath == "" {
		f.logger.Info("Run history disabled - no SQLITE_DB_PATH provided")
		return nil
	}
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	res.History = repo
	res.Deps.Recorder = repo

	prev := res.Cleanup
	res.Cleanup = func() error {
		var errs []error
		if prev != nil {
			errs = append(errs, prev())
		}
		errs = append(errs, repo.Close())
		return errors.Join(errs...)
	}
	f.logger.Info("Run history enabled", "db_path", dbPath)
	return nil
}

func (f *DefaultFactory) createGoogleBackend(ctx context.Context, config Config) (*BackendResult, error) {
	creds := google.Credentials{
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		OAuthClientJSON:    config.GoogleOAuthClientJSON,
		OAuthClientFile:    config.GoogleOAuthClientFile,
		OAuthTokenJSON:     config.GoogleOAuthTokenJSON,
		OAuthTokenFile:     config.GoogleOAuthTokenFile,
	}

	sheetsClient, err := google.New(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		Credentials:     creds,
		AttendanceRange: config.AttendanceRange,
		NameColumn:      config.NameColumn,
		CategoryColumn:  config.CategoryColumn,
		PieceListRange:  config.PieceListRange,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	driveClient, err := drive.New(ctx, config.GoogleDriveParentFolderID, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Drive client: %w", err)
	}

	var pieces ports.PieceList
	if len(config.Pieces) > 0 {
		pieces = cache.Static(config.Pieces)
	} else {
		pieces = cache.NewPieceList(sheetsClient, config.PieceListTTL, cache.SystemClock{})
	}

	f.logger.Info("Initialized Google backend",
		"fixed_pieces", len(config.Pieces) > 0,
		"piece_list_ttl", config.PieceListTTL)

	return &BackendResult{
		Deps: services.Deps{
			Pieces:   pieces,
			Rows:     sheetsClient,
			Uploads:  driveClient,
			Uploader: driveClient,
			Sink:     sheetsClient,
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.MemorySeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory seed: %w", err)
	}
	if len(config.Pieces) > 0 {
		store.SetPieces(config.Pieces)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile)

	return &BackendResult{
		Deps: services.Deps{
			Pieces:   store,
			Rows:     store,
			Uploads:  store,
			Uploader: store,
			Sink:     store,
		},
	}, nil
}
