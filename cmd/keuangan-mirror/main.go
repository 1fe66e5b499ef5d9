package main

import (
	"context"
	"flag"
	"time"

	"keuangan/internal/amqp"
	"keuangan/internal/cli"
	"keuangan/internal/config"
	"keuangan/internal/core"
	"keuangan/internal/log"
	gsheet "keuangan/internal/sheets/google"
	"keuangan/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "mirror the current period once and exit")
	period := flag.String("period", "", "mirror one period (YYYY-MM) and exit")
	flag.Parse()

	logger := cli.SetupLogger(log.ComponentMirror)
	cli.LoadEnvFile(logger)
	logger.Info("Starting keuangan-mirror")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateMirror)
	layout := cli.LoadLayout(logger, cfg.LayoutFile)

	loc, err := time.LoadLocation(cfg.MirrorTimezone)
	if err != nil {
		cli.Fatal(logger, "Invalid mirror timezone", err)
	}

	src, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, gsheet.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	}, layout.Layout)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	opts := []worker.Option{worker.WithLocation(loc)}
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		opts = append(opts, worker.WithPublisher(amqpClient))
	} else {
		logger.Info("Change notifications disabled - no AMQP_URL provided")
	}
	mirror := worker.NewMirror(src, repo, opts...)

	closeAll := func() {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := repo.Close(); err != nil {
			logger.Warn("SQLite close error", log.FieldError, err)
		}
	}

	if *period != "" || *once {
		p := mirror.CurrentPeriod()
		if *period != "" {
			if p, err = core.ParsePeriodKey(*period); err != nil {
				cli.Fatal(logger, "Invalid -period", err)
			}
		}
		res, err := mirror.MirrorPeriod(context.Background(), p)
		closeAll()
		if err != nil {
			cli.Fatal(logger, "Mirror failed", err)
		}
		logger.Info("Mirror finished", log.FieldPeriod, res.Period.Key(), "duration", res.Duration)
		return
	}

	// The store is closed only after the scheduler has drained its jobs.
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	if _, err := mirror.RunOnce(ctx); err != nil {
		logger.Error("Initial mirror run failed", log.FieldError, err)
	}
	if err := mirror.Run(ctx, cfg.MirrorSchedule); err != nil {
		closeAll()
		cli.Fatal(logger, "Mirror scheduler failed", err)
	}
	closeAll()
	<-done

	if last := mirror.LastRun(); last != nil {
		logger.Info("Mirror stopped gracefully",
			"last_period", last.Period.Key(),
			"last_tables", len(last.Tables),
			"last_duration", last.Duration)
	} else {
		logger.Info("Mirror stopped gracefully", "last_period", "none")
	}
}
