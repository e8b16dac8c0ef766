package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/fetch"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/logger"
	"trade-journal-go/internal/metrics"
	"trade-journal-go/internal/server"
	"trade-journal-go/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	m := metrics.New()
	svc := journal.NewService(log, db, m)
	fetcher := fetch.NewFetcher(&cfg.Fetch, log, m)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Watch a drop directory for activity reports when one is configured.
	if cfg.Import.WatchDir != "" {
		w, err := watcher.NewWatcher(cfg.Import.WatchDir, log, func(path string) error {
			_, err := svc.ImportFile(path)
			return err
		})
		if err != nil {
			log.Fatal("Failed to create report watcher", zap.Error(err))
		}
		if err := w.Start(ctx); err != nil {
			log.Fatal("Failed to watch import directory", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(&cfg, log, svc, fetcher, m)
	srv.Start()

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}

	log.Info("Journal has been shut down.")
}
