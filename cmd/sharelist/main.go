package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmfalke/sharelist/internal/config"
	"github.com/dmfalke/sharelist/internal/database"
	"github.com/dmfalke/sharelist/internal/logging"
	"github.com/dmfalke/sharelist/internal/server"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.OpenTimeout(cfg.DBPath, cfg.DBBusyTimeout)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv.Router(),
		ReadTimeout: 5 * time.Second,
		// No write timeout: the stream endpoints hold their response open
		// indefinitely and only heartbeats keep them warm.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	stopCleanup := make(chan struct{})
	go cleanupLoop(srv, logger, stopCleanup)

	go func() {
		fmt.Printf("sharelist running at http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	close(stopCleanup)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// cleanupLoop prunes expired sessions and idle rate-limit buckets hourly.
func cleanupLoop(srv *server.Server, logger *slog.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			removed, err := srv.SessionStore().DeleteExpired()
			if err != nil {
				logger.Error("session cleanup", "error", err)
			} else if removed > 0 {
				logger.Info("expired sessions removed", "count", removed)
			}
			srv.RateLimiter().Cleanup(24 * time.Hour)
		}
	}
}
