package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"housebudget/internal/amqp"
	"housebudget/internal/cli"
	"housebudget/internal/config"
	"housebudget/internal/log"
	"housebudget/internal/metrics"
	"housebudget/internal/sheets"
	gsheet "housebudget/internal/sheets/google"
	mem "housebudget/internal/sheets/memory"
	"housebudget/internal/storage"
	"housebudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	logger.Info("Starting sheets-worker", "backend", cfg.DataBackend)

	household, err := cfg.Household()
	if err != nil {
		logger.Error("Invalid HOUSEHOLD_MEMBERS", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		logger.Error("Failed to initialize repository", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer repo.Close()

	var writer sheets.SnapshotWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = mem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
	}

	m := metrics.New()
	w := worker.NewExportWorker(repo, writer, household).WithMetrics(m)

	if cfg.WorkerMetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.WorkerMetricsAddr,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", log.FieldError, err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.ExportOnStart {
		logger.Info("Performing startup export", log.FieldOperation, log.OpExport)
		if err := w.ExportAll(ctx); err != nil {
			// The next save event exports again.
			logger.Error("Startup export failed", log.FieldError, err)
		}
	}

	if cfg.AMQPURL == "" {
		logger.Info("No AMQP_URL provided, skipping message consumption")
		<-ctx.Done()
		return
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	if err := amqpClient.ConsumeOutgoingsReplaced(ctx, w.HandleOutgoingsReplaced); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
	}
	logger.Info("Worker stopped gracefully")
}

func openRepository(cfg *config.Config) (*storage.SQLRepository, error) {
	if cfg.DataBackend == "postgres" {
		return storage.NewPostgresRepository(cfg.DatabaseURL)
	}
	return storage.NewSQLiteRepository(cfg.SQLiteDBPath)
}
