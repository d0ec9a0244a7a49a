package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/backdrop/config"
	"github.com/bnema/backdrop/internal/adapter/blob/fsblob"
	HTTPAdapter "github.com/bnema/backdrop/internal/adapter/http"
	"github.com/bnema/backdrop/internal/adapter/removal"
	sqlitestore "github.com/bnema/backdrop/internal/adapter/storage/sqlite"
	"github.com/bnema/backdrop/internal/infrastructure/logger"
	"github.com/bnema/backdrop/internal/pipeline"
	"github.com/bnema/backdrop/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error.Printf("failed to load config: %v", err)
		os.Exit(1)
	}

	logger.Info.Printf("starting backdrop on port %d, provider=%s env=%s", cfg.Port, cfg.Provider, cfg.Env)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error.Printf("failed to create data directory: %v", err)
		os.Exit(1)
	}

	store, err := sqlitestore.NewStore(cfg.DataDir)
	if err != nil {
		logger.Error.Printf("failed to create store: %v", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	blobs, err := fsblob.NewStore(cfg.DataDir, cfg.PublicBaseURL)
	if err != nil {
		logger.Error.Printf("failed to create blob store: %v", err)
		os.Exit(1)
	}

	remover, err := removal.New(cfg)
	if err != nil {
		logger.Error.Printf("failed to configure removal provider: %v", err)
		os.Exit(1)
	}

	taskQueue := sqlitestore.NewTaskQueue(store)
	eventBus := service.NewEventBus()

	pl := pipeline.New(remover, blobs, store, eventBus, pipeline.Options{
		MaxWidth:     cfg.MaxDimension,
		MaxHeight:    cfg.MaxDimension,
		OutputFormat: string(cfg.OutputFormat),
		Quality:      cfg.OutputQuality,
	})

	imageSvc := service.NewImageService(store, blobs, taskQueue, remover, cfg.MaxUploadSizeMB, cfg.Retention)

	// Worker pool running the pipeline out-of-band
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	workerPool := service.NewWorkerPool(taskQueue, store, blobs, pl, cfg.Workers)
	workerPool.Start(workerCtx)

	server := HTTPAdapter.NewServer(imageSvc, blobs, eventBus, cfg.MaxUploadSizeMB)

	// Periodic cleanup of expired jobs
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := imageSvc.Cleanup(workerCtx); err != nil {
					logger.Error.Printf("cleanup failed: %v", err)
				}
			case <-workerCtx.Done():
				return
			}
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info.Printf("received %s, shutting down", sig)

		// Stop accepting new requests
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("http shutdown error: %v", err)
		}

		// Stop workers (lets in-flight jobs finish)
		workerCancel()

		logger.Info.Printf("shutdown complete")
	}()

	logger.Info.Printf("server listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error.Printf("server failed: %v", err)
		os.Exit(1)
	}
}
