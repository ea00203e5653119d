package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ensemble/internal/amqp"
	"ensemble/internal/cli"
	applog "ensemble/internal/log"
	"ensemble/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting ensemble-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" && cfg.ReportInterval == 0 {
		logger.Error("Nothing to do: set AMQP_URL and/or REPORT_INTERVAL")
		os.Exit(1)
	}

	svc, res, err := cli.InitReportService(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize report service", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	if res.History != nil {
		last, ok, err := res.History.LastRun(context.Background())
		switch {
		case err != nil:
			logger.Warn("Failed to read run history", "error", err)
		case ok:
			logger.Info("Last report run",
				"run_id", last.ID,
				"finished_at", last.FinishedAt,
				"rows", last.Rows,
				"failed", last.Error != "")
		default:
			logger.Info("No report runs recorded yet")
		}
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			cli.CloseBackend(logger, res)
			os.Exit(1)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		cli.CloseBackend(logger, res)
	})

	reportWorker := worker.NewReportWorker(svc, cfg.ReportInterval)
	go reportWorker.RunPeriodically(ctx)

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeReportRuns(ctx, reportWorker.HandleRunRequest)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
		logger.Info("Consuming report run requests",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
