package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ensemble/internal/core"
	applog "ensemble/internal/log"
	"ensemble/internal/middleware/ratelimit"
	"ensemble/internal/middleware/security"
	"ensemble/internal/middleware/trace"
	"ensemble/internal/services"
	appweb "ensemble/web"
)

// DefaultMaxUploadBytes caps a single recording upload.
const DefaultMaxUploadBytes = 50 << 20

type (
	// ReportService is what the handlers need from the orchestration layer.
	ReportService interface {
		Pieces(ctx context.Context) ([]string, error)
		PersonStatus(ctx context.Context, name string) (map[string]services.PieceStatus, error)
		PersonSubmissions(ctx context.Context, name string) (map[string]int, error)
		EnsureFolder(ctx context.Context, piece string) (string, error)
		Upload(ctx context.Context, req services.UploadRequest) (core.UploadedFile, error)
		Run(ctx context.Context) (services.RunResult, error)
	}

	// Publisher queues report runs for the worker.
	Publisher interface {
		PublishReportRun(ctx context.Context, requestedBy string) (string, error)
	}

	// RunHistory lists recorded report runs.
	RunHistory interface {
		ListRuns(ctx context.Context, limit int) ([]core.ReportRun, error)
	}
)

// Options configures optional server behaviour.
type Options struct {
	// ReportSecret guards the report routes. Empty rejects every call.
	ReportSecret string
	// Publisher enables async report runs. Nil runs inline.
	Publisher Publisher
	// History enables GET /api/report/runs.
	History RunHistory
	Logger  *applog.Logger

	RequestsPerMinute int
	MaxUploadBytes    int64
}

type Server struct {
	http.Server
	templates *template.Template
	svc       ReportService
	opts      Options
	logger    *applog.Logger
	log       *applog.StructuredLogger
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, svc ReportService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP})
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	limiterCfg := ratelimit.DefaultConfig()
	if opts.RequestsPerMinute > 0 {
		limiterCfg.RequestsPerMinute = opts.RequestsPerMinute
	}

	mux := http.NewServeMux()
	s := &Server{
		svc:     svc,
		opts:    opts,
		logger:  opts.Logger,
		log:     applog.NewStructuredLogger(opts.Logger),
		limiter: ratelimit.NewLimiter(limiterCfg),
		tracer:  trace.NewMiddleware(opts.Logger, security.ClientIP),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	limited := s.limiter.Middleware(security.ClientIP, s.handleRateLimited)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/attendance", s.handleAttendance)
	mux.HandleFunc("GET /api/submissions", s.handleSubmissions)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.Handle("POST /api/upload", limited(http.HandlerFunc(s.handleUpload)))
	mux.Handle("POST /api/upload/folder", limited(http.HandlerFunc(s.handleUploadFolder)))
	mux.Handle("GET /api/report", limited(http.HandlerFunc(s.handleReport)))
	mux.Handle("POST /api/report", limited(http.HandlerFunc(s.handleReport)))
	mux.HandleFunc("GET /api/report/runs", s.handleReportRuns)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           headers.Middleware(s.tracer.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, security.ClientIP(r),
		applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
}
