package sheets

import (
	"context"
	"io"

	"ensemble/internal/core"
)

// Ports for outbound adapters.
type (
	// RowSource returns the decoded attendance rows of one piece.
	RowSource interface {
		Rows(ctx context.Context, piece string) ([]core.Row, error)
	}

	// PieceList returns the piece names in display order.
	PieceList interface {
		List(ctx context.Context) ([]string, error)
	}

	// UploadCounter counts recordings on file.
	UploadCounter interface {
		// CountsByPerson returns the number of recordings per person summed
		// over the folders of the given pieces.
		CountsByPerson(ctx context.Context, pieces []string) (map[string]int, error)
		// CountsForPerson returns the number of recordings of one person per piece.
		// Every requested piece is present in the result.
		CountsForPerson(ctx context.Context, name string, pieces []string) (map[string]int, error)
	}

	// ReportSink is the destination the report table is materialized into.
	ReportSink interface {
		Exists(ctx context.Context, title string) (bool, error)
		Create(ctx context.Context, title string) error
		Clear(ctx context.Context, title string) error
		Write(ctx context.Context, title string, values [][]any) error
	}

	// Uploader stores recordings in per-piece folders.
	Uploader interface {
		// EnsureFolder returns the folder ID of piece, creating it if needed.
		EnsureFolder(ctx context.Context, piece string) (string, error)
		Upload(ctx context.Context, folderID, fileName, mimeType string, body io.Reader) (core.UploadedFile, error)
	}
)
