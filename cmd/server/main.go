/*
main.go - Leave dashboard server entry point

PURPOSE:
  Wires the leave engine together and serves the dashboard API. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env / .env) and parse flags
  2. Open the SQLite cache
  3. Build the remote client, event hub, and store
  4. Start the cache watcher
  5. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -cache   SQLite cache path (default from LEAVE_CACHE_PATH)
           Use ":memory:" for a throwaway cache

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the cache watcher and close the cache

ENVIRONMENT:
  LEAVE_API_BASE_URL    HR backend base URL
  LEAVE_CACHE_PATH      SQLite cache file
  LEAVE_HTTP_TIMEOUT    Remote call timeout
  LEAVE_WATCH_INTERVAL  Cache revision polling interval

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment keys and defaults
  - cmd/fakeapi/main.go: Fake backend for local development
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/staffhive/leave-engine/api"
	"github.com/staffhive/leave-engine/cache/sqlite"
	"github.com/staffhive/leave-engine/config"
	"github.com/staffhive/leave-engine/leave"
	"github.com/staffhive/leave-engine/relay"
	"github.com/staffhive/leave-engine/remote"
)

func main() {
	cfg := config.Load()

	port := flag.Int("port", 8080, "HTTP server port")
	cachePath := flag.String("cache", cfg.CachePath, "SQLite cache path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cache, err := sqlite.New(*cachePath)
	if err != nil {
		logger.Error("failed to open cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	hub := relay.NewHub()

	store, err := leave.NewStore(leave.StoreConfig{
		Remote:   remote.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout),
		Cache:    cache,
		Notifier: hub,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to build store", "error", err)
		os.Exit(1)
	}

	// Watch for cache writes by other processes sharing the file.
	watcherCtx, stopWatcher := context.WithCancel(context.Background())
	defer stopWatcher()
	watcher := relay.NewWatcher(cache, hub, cfg.WatchInterval)
	watcher.Logger = logger
	go watcher.Run(watcherCtx)

	router := api.NewRouter(api.NewHandler(store, hub))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: /api/events holds SSE connections open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("leave dashboard server starting",
			"addr", server.Addr, "backend", cfg.APIBaseURL, "cache", *cachePath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("stopped")
}
