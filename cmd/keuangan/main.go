package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"keuangan/internal/amqp"
	"keuangan/internal/backend"
	"keuangan/internal/cache"
	"keuangan/internal/cli"
	"keuangan/internal/config"
	"keuangan/internal/fetcher"
	apphttp "keuangan/internal/http"
	"keuangan/internal/ingest"
	"keuangan/internal/log"
	"keuangan/internal/services"
	"keuangan/internal/sheets"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := cli.SetupLogger(log.ComponentApp)
	cli.LoadEnvFile(logger)

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)
	layout := cli.LoadLayout(logger, cfg.LayoutFile)

	backendCfg, err := backend.FromAppConfig(cfg, layout)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	f := fetcher.New(res.Worksheet, fetcher.Options{
		Size:    cfg.CacheSize,
		TTL:     cfg.CacheTTL,
		Timeout: cfg.FetchTimeout,
	})

	var opts []services.Option
	if cfg.IngestURL != "" {
		opts = append(opts, services.WithAppender(ingest.NewClient(cfg.IngestURL)))
		logger.Info("Transaction ingestion enabled")
	} else {
		logger.Info("Transaction ingestion disabled - no INGEST_URL provided")
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		opts = append(opts, services.WithPublisher(amqpClient))
	}

	if fr, ok := res.Worksheet.(sheets.RefreshReporter); ok {
		opts = append(opts, services.WithRefreshReporter(fr))
	}

	svc := services.NewDashboardService(f, layout.Ledger, opts...)
	srv := apphttp.NewServer(":"+cfg.Port, svc,
		apphttp.WithLogger(logger.WithComponent(log.ComponentHTTP)),
		apphttp.WithReadyCheck(res.Ping),
	)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	janitor := cache.NewJanitor(f.Caches()...)
	go janitor.Run(ctx, cfg.CacheTTL/2)

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeTablesRefreshed(ctx, svc.HandleTablesRefreshed)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Change notification consumer stopped", log.FieldError, err)
			}
		}()
	}

	go func() {
		logger.Info("Starting keuangan server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cli.Fatal(logger, "Server error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	<-janitor.Done()
	logger.Info("Server stopped gracefully")
}
