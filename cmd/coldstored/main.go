package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"coldstore-backend/config"
	"coldstore-backend/internal/api"
	"coldstore-backend/internal/db"
	"coldstore-backend/internal/logging"
	"coldstore-backend/internal/notification"
	"coldstore-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	logger.WithField("path", configPath).Info("configuration loaded")
	if !logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Domain events go to the audit table and the log after each committed write
	dispatcher := notification.NewDispatcher(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, logger,
		notification.NewAuditSubscriber(gormDB),
		notification.NewLogSubscriber(logger),
	)
	dispatcher.Start(ctx)

	appStore := store.NewGormStore(gormDB, store.Options{
		Logger:          logger,
		Publisher:       dispatcher,
		MaxBatch:        cfg.Cells.MaxBatch,
		MinReasonLength: cfg.DayBlocks.MinReasonLength,
	})
	logger.Info("data store initialized")

	// Initialize router
	router := api.NewRouter(appStore, cfg, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server ListenAndServe")
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("HTTP server Shutdown")
	}

	// No handler can publish any more; workers flush the queue before exiting.
	cancel()
	dispatcher.Wait()
	logger.Info("Server gracefully stopped")
}
