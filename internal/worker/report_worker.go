package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ensemble/internal/amqp"
	"ensemble/internal/services"
)

// Runner runs one report materialization.
type Runner interface {
	Run(ctx context.Context) (services.RunResult, error)
}

// ReportWorker is the single writer of the report sheet. It serves queued
// run requests and, when an interval is set, rebuilds the report on a
// schedule.
type ReportWorker struct {
	runner   Runner
	interval time.Duration
}

func NewReportWorker(runner Runner, interval time.Duration) *ReportWorker {
	return &ReportWorker{runner: runner, interval: interval}
}

// HandleRunRequest processes a single report run request from AMQP.
// A request that arrives while another run is in progress is dropped: the
// running materialization already reads the latest sheet state.
func (w *ReportWorker) HandleRunRequest(ctx context.Context, msg *amqp.ReportRunMessage) error {
	slog.InfoContext(ctx, "Processing report run request",
		"request_id", msg.RequestID,
		"requested_by", msg.RequestedBy,
		"queued_for", time.Since(msg.Timestamp).Round(time.Millisecond))

	res, err := w.runner.Run(ctx)
	if errors.Is(err, services.ErrRunInProgress) {
		slog.InfoContext(ctx, "Report run already in progress, dropping request", "request_id", msg.RequestID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("run report: %w", err)
	}

	slog.InfoContext(ctx, "Report run request completed",
		"request_id", msg.RequestID,
		"run_id", res.RunID,
		"rows", len(res.Rows))
	return nil
}

// RunPeriodically rebuilds the report every interval until ctx is done.
// It returns immediately when no interval is configured.
func (w *ReportWorker) RunPeriodically(ctx context.Context) {
	if w.interval <= 0 {
		slog.InfoContext(ctx, "Scheduled report runs disabled")
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Scheduled report runs enabled", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scheduledRun(ctx)
		}
	}
}

func (w *ReportWorker) scheduledRun(ctx context.Context) {
	res, err := w.runner.Run(ctx)
	switch {
	case errors.Is(err, services.ErrRunInProgress):
		slog.InfoContext(ctx, "Skipping scheduled report run, one is already in progress")
	case err != nil:
		slog.ErrorContext(ctx, "Scheduled report run failed", "error", err)
	default:
		slog.InfoContext(ctx, "Scheduled report run completed", "run_id", res.RunID, "rows", len(res.Rows))
	}
}
