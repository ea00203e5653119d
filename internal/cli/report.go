package cli

import (
	"context"
	"fmt"

	"ensemble/internal/backend"
	"ensemble/internal/config"
	applog "ensemble/internal/log"
	"ensemble/internal/services"
)

// InitReportService builds the configured backend and the report service on
// top of it. The caller owns the returned backend cleanup.
func InitReportService(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*services.ReportService, *backend.BackendResult, error) {
	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load rules: %w", err)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s backend: %w", backendCfg.Type, err)
	}

	svc := services.NewReportService(res.Deps, rules, services.Options{
		Title:       cfg.ReportSheetTitle,
		SortByName:  cfg.ReportSortByName,
		Concurrency: cfg.ReportConcurrency,
	}, logger.WithComponent(applog.ComponentReport).Logger)

	logger.Info("Report service initialized",
		"backend", backendCfg.Type,
		"title", svc.Title(),
		"history", res.History != nil,
		"rules_file", cfg.RulesFile)
	return svc, res, nil
}

// CloseBackend runs the backend cleanup, if any, and logs its failure.
func CloseBackend(logger *applog.Logger, res *backend.BackendResult) {
	if res == nil || res.Cleanup == nil {
		return
	}
	if err := res.Cleanup(); err != nil {
		logger.Error("Backend cleanup failed", "error", err)
	}
}
