package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func bufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: component, Output: buf})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentApp).WithComponent(ComponentReport)
	l.Info("hello")
	if l.Component() != ComponentReport {
		t.Fatalf("Component() = %q", l.Component())
	}
	if !strings.Contains(buf.String(), "component=report") {
		t.Fatalf("missing component in %q", buf.String())
	}
}

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	base := bufferLogger(&buf, "")

	h := Middleware(base)(
		ComponentMiddleware(ComponentHTTP)(
			RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					FromContext(r.Context()).InfoContext(r.Context(), "inside")
				}))))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	out := buf.String()
	if !strings.Contains(out, "request_id=req-1") || !strings.Contains(out, "component=http") {
		t.Fatalf("unexpected log line %q", out)
	}
}

func TestFromContextFallback(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %+v", l)
	}
}

func TestLogHTTPEndRedactsKey(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentHTTP)
	sl := NewStructuredLogger(l)
	r := httptest.NewRequest(http.MethodGet, "/api/report?key=secret&async=1", nil)

	sl.LogHTTPEnd(WithLogger(context.Background(), l), r, http.StatusUnauthorized, 3, "127.0.0.1")
	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Fatalf("report key leaked into logs: %q", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "status_code=401") {
		t.Fatalf("unexpected log line %q", out)
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentReport)
	NewStructuredLogger(l).LogError(WithLogger(context.Background(), l), "boom", errors.New("quota"), ErrorTypeUpstream, OpReport, nil)
	out := buf.String()
	for _, want := range []string{"error=quota", "error_type=upstream_error", "operation=report"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}
