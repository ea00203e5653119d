package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"ensemble/internal/core"
	ports "ensemble/internal/sheets"

	"google.golang.org/api/googleapi"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	attendanceRange string
	pieceListRange  string
	layout          Layout
}

// Ensure interface conformance
var (
	_ ports.RowSource  = (*Client)(nil)
	_ ports.PieceList  = (*Client)(nil)
	_ ports.ReportSink = (*Client)(nil)
)

// Config describes the spreadsheet the client reads and writes.
type Config struct {
	SpreadsheetID string
	Credentials   Credentials

	// AttendanceRange is read from every piece tab, e.g. "A2:H".
	AttendanceRange string
	NameColumn      string
	CategoryColumn  string

	// PieceListRange holds piece names in its first column below a header,
	// e.g. "CONFIG!A:A".
	PieceListRange string
}

func (c *Config) applyDefaults() {
	if c.AttendanceRange == "" {
		c.AttendanceRange = "A2:H"
	}
	if c.NameColumn == "" {
		c.NameColumn = "B"
	}
	if c.CategoryColumn == "" {
		c.CategoryColumn = "E"
	}
	if c.PieceListRange == "" {
		c.PieceListRange = "CONFIG!A:A"
	}
}

// New creates a Sheets client. The column layout is validated here so the
// row decoder never has to.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts, err := ClientOptions(ctx, cfg.Credentials, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return NewWithService(svc, cfg)
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, cfg Config) (*Client, error) {
	cfg.applyDefaults()
	layout, err := NewLayout(rangeStartColumn(cfg.AttendanceRange), cfg.NameColumn, cfg.CategoryColumn)
	if err != nil {
		return nil, fmt.Errorf("attendance layout: %w", err)
	}
	return &Client{
		svc:             svc,
		spreadsheetID:   strings.TrimSpace(cfg.SpreadsheetID),
		attendanceRange: cfg.AttendanceRange,
		pieceListRange:  cfg.PieceListRange,
		layout:          layout,
	}, nil
}

// Rows implements ports.RowSource.
func (c *Client) Rows(ctx context.Context, piece string) ([]core.Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := a1Range(piece, c.attendanceRange)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if isMissingRange(err) {
		// A piece listed in CONFIG without its own tab has no attendance yet.
		slog.WarnContext(ctx, "Piece tab not found, treating as empty", "piece", piece)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return decodeRows(resp.Values, c.layout), nil
}

func isMissingRange(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		return false
	}
	return strings.Contains(apiErr.Message, "Unable to parse range")
}

// List implements ports.PieceList.
func (c *Client) List(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.pieceListRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.pieceListRange, err)
	}
	return decodePieceNames(resp.Values), nil
}

// Exists implements ports.ReportSink.
func (c *Client) Exists(ctx context.Context, title string) (bool, error) {
	if c.svc == nil {
		return false, errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	_, ok := findSheet(ss, title)
	return ok, nil
}

// Create implements ports.ReportSink by adding a tab.
func (c *Client) Create(ctx context.Context, title string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created report sheet", "title", title)
	return nil
}

// Clear implements ports.ReportSink. Formatting is kept, values are removed.
func (c *Client) Clear(ctx context.Context, title string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := a1Range(title, "")
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// Write implements ports.ReportSink, writing values from A1.
func (c *Client) Write(ctx context.Context, title string, values [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := a1Range(title, "A1")
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	return nil
}
