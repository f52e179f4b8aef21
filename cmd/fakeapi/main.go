/*
main.go - Fake HR backend entry point

PURPOSE:
  Runs a standalone in-memory HR backend exposing the leave endpoints the
  engine's remote client talks to. Intended for local development and
  integration testing, not production use.

STARTUP SEQUENCE:
  1. Load configuration (env / .env)
  2. Parse command-line flags
  3. Build in-memory state and router
  4. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default from LEAVE_API_PORT, 8090)
  -flaky    Fail every third request with 503 to exercise offline fallback

EXAMPLES:
  # Plain fake backend
  ./fakeapi

  # Simulate an unreliable backend
  ./fakeapi -flaky

SEE ALSO:
  - cmd/fakeapi/handlers.go: Routes and in-memory state
  - remote/client.go: The client these endpoints serve
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

	"github.com/staffhive/leave-engine/config"
)

func main() {
	cfg := config.Load()

	port := flag.Int("port", cfg.Port, "HTTP server port")
	flaky := flag.Bool("flaky", false, "fail every third request with 503")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	srv := newServer(*flaky)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      srv.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("fake HR backend starting", "addr", httpServer.Addr, "flaky", *flaky)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("stopped")
}
