package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"

	"courier-lab/gateway"
	"courier-lab/infrastructure/s3"
	"courier-lab/infrastructure/storage"
	"courier-lab/internal"
	"courier-lab/observability"
	"courier-lab/runtime"
	"courier-lab/runtime/workers"
	"courier-lab/services"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Courier terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// The pattern keeps 'defer' cleanup (database close, spool removal) on the
// happy path out of main and makes initialization testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config validation failed: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx := context.Background()

	if err := os.MkdirAll(config.SpoolDir, 0o700); err != nil {
		return exitRuntime, fmt.Errorf("spool dir creation failed: %w", err)
	}

	// 2. Database (BadgerDB)
	options := buildBadgerOpts(config, logger, ctx)

	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		url := fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint)
		logger.Info("Debug Badger inspector available", "url", url)
		database.StartDebugServer(db, config.DebugPort, endpoint, TransferMapper)
	}

	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Object store & repositories
	store, err := s3.New(ctx, logger, config.S3Bucket, config.S3Region, config.S3Prefix, config.S3PartSizeMb*1024*1024)
	if err != nil {
		return exitRuntime, fmt.Errorf("object store init failed: %w", err)
	}

	transferRepository := storage.NewTransferRepository(db, logger)
	adminRepository := storage.NewAdminRepository(db)

	// 4. Pipeline core
	stats := observability.NewPipelineStats()
	board := gateway.NewStatusBoard(logger)
	throttler := runtime.NewThrottler(config.ProgressInterval)

	coordinator := runtime.NewCoordinator(logger, board, store, transferRepository, throttler, stats)

	adminService := services.NewAdminService(adminRepository, config.PermanentAdminHandles())
	transferService := services.NewTransferService(coordinator, transferRepository, stats)
	maintenanceService := services.NewMaintenanceService(store, logger)

	// 5. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinator.Start(ctx)

	// 6. HTTP gateway
	gatewayServer := gateway.NewServer(
		logger, transferService, adminService, maintenanceService,
		board, config.SpoolDir, config.MaxUploadBytes,
	)

	// 7. Supervision (heartbeat, janitor and gateway retention workers)
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		workers.NewHeartbeatWorker(logger, config.HeartbeatInterval, stats, coordinator),
		workers.NewJanitorWorker(logger, transferRepository, config.JanitorInterval, config.ArchiveRetention),
		gateway.NewRetentionWorker(logger, gatewayServer, config.JanitorInterval, config.ArchiveRetention),
	)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// Error (HTTP server)
	errChan := make(chan error, 1)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: gatewayServer.Handler()}

	go func() {
		logger.Info("Starting HTTP gateway", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	// The execution blocks here until either a signal is received or the server crashes.
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 9. Final Cleanup (Graceful Shutdown)
	// Active uploads are allowed to finish; the queue is not drained here,
	// jobs left queued simply never activate.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	coordinator.Shutdown()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

// TransferMapper renders archive rows for the Badger debug inspector.
func TransferMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	var record storage.TransferRecord
	if err := json.Unmarshal(val, &record); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	row.Type = record.Status
	row.Detail = fmt.Sprintf("%s (%d bytes) by %s", record.Name, record.Size, record.Requester)
	if record.Reason != "" {
		row.Detail += " : " + record.Reason
	}
	return row
}
