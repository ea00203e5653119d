package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"ensemble/internal/core"
	ports "ensemble/internal/sheets"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInputMissing is returned when a required request field is empty.
	ErrInputMissing = errors.New("input missing")
	// ErrCollaborator wraps any failure of a sheet, drive or sink call.
	ErrCollaborator = errors.New("collaborator failure")
	// ErrRunInProgress is returned when a materialization is already running.
	ErrRunInProgress = errors.New("report run already in progress")
)

const (
	DefaultReportTitle = "벌금_정산"
	DefaultConcurrency = 4
	DefaultMimeType    = "audio/mpeg"
	defaultExtension   = ".mp3"
)

// Recorder persists run history. Optional.
type Recorder interface {
	RecordRun(ctx context.Context, run core.ReportRun) error
}

// Deps are the collaborators the service talks to.
type Deps struct {
	Pieces   ports.PieceList
	Rows     ports.RowSource
	Uploads  ports.UploadCounter
	Uploader ports.Uploader
	Sink     ports.ReportSink
	Recorder Recorder
}

// Options tune report generation.
type Options struct {
	Title       string
	SortByName  bool
	Concurrency int
}

type (
	// RunResult describes a completed materialization.
	RunResult struct {
		RunID      string           `json:"runId"`
		Title      string           `json:"title"`
		Rows       []core.ReportRow `json:"rows"`
		StartedAt  time.Time        `json:"startedAt"`
		FinishedAt time.Time        `json:"finishedAt"`
	}

	// PieceStatus is one person's requirement for a single piece.
	PieceStatus struct {
		Required  int         `json:"required"`
		Breakdown core.Counts `json:"breakdown"`
	}

	// UploadRequest is a recording submitted by a member.
	UploadRequest struct {
		Name     string
		Piece    string
		FileName string
		MimeType string
		Body     io.Reader
	}
)

// ReportService orchestrates reads from the attendance sheets and upload
// folders and writes the fine report.
type ReportService struct {
	deps         Deps
	rules        core.Rules
	opts         Options
	materializer *Materializer
	logger       *slog.Logger
	now          func() time.Time
}

func NewReportService(deps Deps, rules core.Rules, opts Options, logger *slog.Logger) *ReportService {
	if opts.Title == "" {
		opts.Title = DefaultReportTitle
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		deps:         deps,
		rules:        rules,
		opts:         opts,
		materializer: NewMaterializer(deps.Sink),
		logger:       logger,
		now:          time.Now,
	}
}

// Title returns the report sheet title.
func (s *ReportService) Title() string { return s.opts.Title }

// Pieces returns the current piece list.
func (s *ReportService) Pieces(ctx context.Context) ([]string, error) {
	pieces, err := s.deps.Pieces.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list pieces: %w", ErrCollaborator, err)
	}
	return pieces, nil
}

// Build computes the report rows without writing them anywhere.
// Any collaborator failure aborts the build and discards partial results.
func (s *ReportService) Build(ctx context.Context) ([]core.ReportRow, error) {
	pieces, err := s.Pieces(ctx)
	if err != nil {
		return nil, err
	}

	tallies := make([]core.PieceTally, len(pieces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, piece := range pieces {
		g.Go(func() error {
			rows, err := s.deps.Rows.Rows(gctx, piece)
			if err != nil {
				return fmt.Errorf("%w: read rows of %q: %w", ErrCollaborator, piece, err)
			}
			tallies[i] = core.Tally(rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	roster := core.Merge(tallies...)
	submitted, err := s.deps.Uploads.CountsByPerson(ctx, pieces)
	if err != nil {
		return nil, fmt.Errorf("%w: count uploads: %w", ErrCollaborator, err)
	}

	rows := core.BuildRows(s.rules, roster, submitted, s.opts.SortByName)
	s.logger.DebugContext(ctx, "Report built", "pieces", len(pieces), "rows", len(rows))
	return rows, nil
}

// Run builds the report, replaces the report sheet with it and records the
// run. Overlapping runs fail with ErrRunInProgress.
func (s *ReportService) Run(ctx context.Context) (RunResult, error) {
	res := RunResult{RunID: uuid.NewString(), Title: s.opts.Title, StartedAt: s.now()}

	err := s.materializer.Guard(func() error {
		rows, err := s.Build(ctx)
		if err != nil {
			return err
		}
		if err := s.materializer.Materialize(ctx, s.opts.Title, rows); err != nil {
			return err
		}
		res.Rows = rows
		return nil
	})
	res.FinishedAt = s.now()
	if errors.Is(err, ErrRunInProgress) {
		return res, err
	}

	s.record(ctx, res, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "Report run failed", "run_id", res.RunID, "error", err)
		return res, err
	}
	s.logger.InfoContext(ctx, "Report run completed",
		"run_id", res.RunID,
		"title", res.Title,
		"rows", len(res.Rows),
		"duration", res.FinishedAt.Sub(res.StartedAt))
	return res, nil
}

func (s *ReportService) record(ctx context.Context, res RunResult, runErr error) {
	if s.deps.Recorder == nil {
		return
	}
	run := core.ReportRun{
		ID:         res.RunID,
		Title:      res.Title,
		Rows:       len(res.Rows),
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
	for _, r := range res.Rows {
		run.TotalFine += r.Fine
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// History is best effort; the sheet is the source of truth.
	if err := s.deps.Recorder.RecordRun(ctx, run); err != nil {
		s.logger.WarnContext(ctx, "Failed to record report run", "run_id", res.RunID, "error", err)
	}
}

// PersonStatus returns, per piece, how many recordings name owes.
// Pieces where nothing is owed are left out.
func (s *ReportService) PersonStatus(ctx context.Context, name string) (map[string]PieceStatus, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrInputMissing)
	}
	pieces, err := s.Pieces(ctx)
	if err != nil {
		return nil, err
	}

	counts := make([]core.Counts, len(pieces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, piece := range pieces {
		g.Go(func() error {
			rows, err := s.deps.Rows.Rows(gctx, piece)
			if err != nil {
				return fmt.Errorf("%w: read rows of %q: %w", ErrCollaborator, piece, err)
			}
			counts[i] = core.TallyFor(rows, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]PieceStatus)
	for i, piece := range pieces {
		required := s.rules.Required(counts[i])
		if required > 0 {
			out[piece] = PieceStatus{Required: required, Breakdown: counts[i]}
		}
	}
	return out, nil
}

// PersonSubmissions returns how many recordings name uploaded per piece.
func (s *ReportService) PersonSubmissions(ctx context.Context, name string) (map[string]int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrInputMissing)
	}
	pieces, err := s.Pieces(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.deps.Uploads.CountsForPerson(ctx, name, pieces)
	if err != nil {
		return nil, fmt.Errorf("%w: count uploads of %q: %w", ErrCollaborator, name, err)
	}
	return counts, nil
}

// EnsureFolder returns the upload folder of piece, creating it if needed.
func (s *ReportService) EnsureFolder(ctx context.Context, piece string) (string, error) {
	piece = strings.TrimSpace(piece)
	if piece == "" {
		return "", fmt.Errorf("%w: piece", ErrInputMissing)
	}
	id, err := s.deps.Uploader.EnsureFolder(ctx, piece)
	if err != nil {
		return "", fmt.Errorf("%w: ensure folder %q: %w", ErrCollaborator, piece, err)
	}
	return id, nil
}

// Upload stores a recording in the folder of its piece.
func (s *ReportService) Upload(ctx context.Context, req UploadRequest) (core.UploadedFile, error) {
	name := strings.TrimSpace(req.Name)
	piece := strings.TrimSpace(req.Piece)
	switch {
	case name == "":
		return core.UploadedFile{}, fmt.Errorf("%w: name", ErrInputMissing)
	case piece == "":
		return core.UploadedFile{}, fmt.Errorf("%w: piece", ErrInputMissing)
	case req.Body == nil:
		return core.UploadedFile{}, fmt.Errorf("%w: file", ErrInputMissing)
	}

	folderID, err := s.EnsureFolder(ctx, piece)
	if err != nil {
		return core.UploadedFile{}, err
	}
	mime := req.MimeType
	if mime == "" {
		mime = DefaultMimeType
	}
	fileName := SubmissionFileName(name, piece, req.FileName, s.now())
	f, err := s.deps.Uploader.Upload(ctx, folderID, fileName, mime, req.Body)
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("%w: upload %q: %w", ErrCollaborator, fileName, err)
	}
	s.logger.DebugContext(ctx, "Recording stored", "name", name, "piece", piece, "file", f.Name)
	return f, nil
}

// SubmissionFileName names a stored recording <name>_<piece>_<unixmillis><ext>.
// The prefix before the first underscore is what upload counting keys on.
func SubmissionFileName(name, piece, original string, at time.Time) string {
	ext := strings.ToLower(path.Ext(original))
	if ext == "" {
		ext = defaultExtension
	}
	return fmt.Sprintf("%s_%s_%d%s", name, piece, at.UnixMilli(), ext)
}
