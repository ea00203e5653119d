package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ensemble/internal/amqp"
	"ensemble/internal/cli"
	apphttp "ensemble/internal/http"
	applog "ensemble/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	svc, res, err := cli.InitReportService(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize report service", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := apphttp.Options{
		ReportSecret: cfg.ReportSecret,
		Logger:       logger.WithComponent(applog.ComponentHTTP),
	}
	if cfg.ReportSecret == "" {
		logger.Warn("REPORT_SECRET is not set, report routes will reject every call")
	}
	if res.History != nil {
		opts.History = res.History
	}

	// AMQP is optional; without it reports run inline.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, reports will run inline", "error", err)
		} else {
			opts.Publisher = amqpClient
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, opts)

	// Configure server timeouts and limits. Uploads need a generous write window.
	srv.ReadTimeout = 60 * time.Second
	srv.WriteTimeout = 90 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		cli.CloseBackend(logger, res)
	})

	logger.Info("Starting ensemble server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"async_reports", opts.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
