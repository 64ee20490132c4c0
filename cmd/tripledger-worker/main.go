package main

import (
	"context"
	"errors"
	"os"
	"time"

	"tripledger/internal/amqp"
	"tripledger/internal/backend"
	"tripledger/internal/cli"
	"tripledger/internal/config"
	applog "tripledger/internal/log"
	"tripledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, applog.ComponentWorker)
	ctx := context.Background()

	logger.InfoContext(ctx, "Starting tripledger-worker")

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentSheets).Logger)

	changeLog, err := factory.CreateChangeLog(ctx, bcfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize change log", applog.FieldError, err)
		os.Exit(1)
	}
	defer changeLog.Cleanup()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	exporter := worker.NewExportWorker(changeLog.Log)

	runCtx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.InfoContext(ctx, "Consuming change events",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"sheets", bcfg.SheetsEnabled())
	if err := client.ConsumeWithRetry(runCtx, exporter.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.InfoContext(ctx, "Worker stopped gracefully")
}
