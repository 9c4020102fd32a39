// Command api is the MealBridge notification service.
//
// Usage:
//
//	mealbridge-notify
//	API_PORT=8080 mealbridge-notify

// @title MealBridge Notification API
// @version 1.0.0
// @description Push-notification service for the MealBridge surplus-food donation platform: closing-time reminders, nearby-donation broadcasts, and donation lifecycle notices.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name MealBridge
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/mealbridge/notify/internal/api"
	"github.com/mealbridge/notify/internal/approval"
	"github.com/mealbridge/notify/internal/config"
	"github.com/mealbridge/notify/internal/db"
	"github.com/mealbridge/notify/internal/listener"
	"github.com/mealbridge/notify/internal/mailer"
	"github.com/mealbridge/notify/internal/maintenance"
	"github.com/mealbridge/notify/internal/notify"
	"github.com/mealbridge/notify/internal/push"
	"github.com/mealbridge/notify/internal/store"

	_ "github.com/mealbridge/notify/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	zone, err := cfg.Zone()
	if err != nil {
		logger.Error("Failed to resolve business time zone", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Push delivery (nil-safe when no credentials are configured)
	sender, err := push.NewFCMSender(ctx, cfg.FCMCredentialsFile, logger)
	if err != nil {
		logger.Error("Failed to initialize FCM", "error", err)
		os.Exit(1)
	}
	if sender == nil {
		logger.Info("Push delivery disabled (no FIREBASE_CREDENTIALS_FILE)")
	}

	users := store.NewUsers(pool.Pool)
	donations := store.NewDonations(pool.Pool)
	dispatcher := notify.NewDispatcher(users, sender, cfg.Policy(), zone, logger)

	// Donation change-feed consumer
	approvals := approval.New(users, sender, mailer.New(cfg), logger)
	feed := listener.New(cfg.DatabaseURL, dispatcher, donations, approvals, logger)
	go feed.Start(ctx)

	// Reminder sweep + housekeeping tickers
	go maintenance.Start(ctx, dispatcher, pool.Pool,
		maintenance.DefaultConfig(cfg.PollInterval()), logger)
	logger.Info("Reminder sweep scheduled",
		"interval", cfg.PollInterval(), "zone", cfg.TimeZone)

	// HTTP server
	router := api.NewRouter(pool, users, donations, dispatcher, cfg)
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	logger.Info("Shutdown complete")
}
