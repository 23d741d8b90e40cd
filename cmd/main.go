/*
Package main is the entry point for the CampusHub server.

It is responsible for loading configuration, initializing the global logging
system, connecting to PostgreSQL and (optionally) Redis, starting the real-time
hub and the notification retention sweeper, and gracefully handling operating
system interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"campushub/internal/app/db"
	"campushub/internal/app/rtc"
	"campushub/internal/app/storage"
	"campushub/internal/app/store"
	"campushub/internal/configs"
	"campushub/internal/handler"
	"campushub/internal/pkg/logx"
)

// purgeInterval is how often expired notifications are swept from the database.
const purgeInterval = 1 * time.Hour

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("storage_enabled", cfg.StorageEnabled()).
		Bool("redis_bridged", cfg.RedisURL != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and apply migrations.
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	dataStore := store.New(pool)

	// Initialize the real-time hub.
	hub := rtc.NewHub(cfg.JWTSecret)

	// Bridge fan-out across instances when Redis is configured.
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logx.Fatal(err, "Failed to parse REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logx.Fatal(err, "Failed to connect to Redis")
		}
		hub.AttachBridge(rtc.NewBridge(rdb))
		logx.Info("Redis fan-out bridge attached")
	}

	// Initialize file storage when configured.
	var storageService storage.StorageService
	if cfg.StorageEnabled() {
		storageService, err = storage.NewStorageService(storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize storage service")
		}
	}

	// Sweep expired notifications on a fixed interval. Retention is the
	// persistence layer's job; the real-time layer never touches it.
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := dataStore.PurgeExpiredNotifications(ctx)
				if err != nil {
					logx.Error(err, "Failed to purge expired notifications")
					continue
				}
				if purged > 0 {
					logx.Info("Purged expired notifications", "count", purged)
				}
			}
		}
	}()

	// Setup HTTP server and routes
	deps := &handler.AppDeps{
		Hub:            hub,
		Config:         cfg,
		Store:          dataStore,
		StorageService: storageService,
	}
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("CampusHub Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
}
