package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kompvlz/zakupki/internal/assetcache"
	"github.com/kompvlz/zakupki/internal/blob"
	"github.com/kompvlz/zakupki/internal/config"
	"github.com/kompvlz/zakupki/internal/db"
	"github.com/kompvlz/zakupki/internal/server"
	"github.com/kompvlz/zakupki/internal/store"
	"github.com/kompvlz/zakupki/pkg/logger"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(conn, cfg.DatabaseDSN); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	blobs := blob.NewGormStore(conn)

	docs := store.NewStore(blobs)
	if err := docs.Load(); err != nil {
		log.Fatalf("Failed to load purchases: %v", err)
	}
	log.WithField("purchases", docs.Len()).Info("document store loaded")

	// The asset cache only runs when an origin is configured; installation
	// failure is not fatal, the previously activated namespace keeps serving.
	var assets http.Handler
	if cfg.AssetOrigin != "" {
		origin, err := assetcache.NewOriginFetcher(cfg.AssetOrigin)
		if err != nil {
			log.Fatalf("Invalid ASSET_ORIGIN: %v", err)
		}
		cache := assetcache.New(cfg.AssetVersion, assetcache.DefaultManifest(), blobs, origin, log)
		installCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := cache.Install(installCtx); err != nil {
			log.WithError(err).Warn("asset cache install failed, previous version stays active")
		} else if err := cache.Activate(); err != nil {
			log.WithError(err).Warn("asset cache activation failed")
		}
		cancel()
		assets = cache
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.New(docs, assets, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Server starting on port %s (env=%s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Error during shutdown: %v", err)
	}
	log.Info("Server stopped gracefully")
}
