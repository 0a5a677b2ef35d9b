package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"housebudget/internal/backend"
	"housebudget/internal/cli"
	apphttp "housebudget/internal/http"
	"housebudget/internal/log"
	"housebudget/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	m := metrics.New()

	backendConfig, err := backend.FromAppConfig(cfg, m)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(startCtx, backendConfig)
	cancel()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	srv, err := apphttp.NewServer(":"+cfg.Port, result.Service, apphttp.Options{
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting housebudget server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"cache", cfg.CacheBackend,
			"members", backendConfig.Household.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
