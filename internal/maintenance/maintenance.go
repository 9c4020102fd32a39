// Package maintenance runs the periodic background tasks as Go tickers:
// the reminder sweep and donation housekeeping. All scheduled work is
// driven from Go since the service is already a persistent, long-running
// process (required for LISTEN/NOTIFY).
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mealbridge/notify/internal/notify"
)

// Config controls task intervals. Zero duration disables a task.
type Config struct {
	SweepInterval   time.Duration // Closing-time reminder sweep
	CleanupInterval time.Duration // Purge long-completed donations
}

// DefaultConfig returns production defaults. sweepInterval should come from
// the configured poll interval so the trigger window stays in step with it.
func DefaultConfig(sweepInterval time.Duration) Config {
	return Config{
		SweepInterval:   sweepInterval,
		CleanupInterval: 6 * time.Hour,
	}
}

// Start launches all configured tickers. Blocks until ctx is cancelled.
// Intended to be called with `go`.
func Start(ctx context.Context, dispatcher *notify.Dispatcher, pool *pgxpool.Pool, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"sweep", cfg.SweepInterval,
		"cleanup", cfg.CleanupInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.SweepInterval > 0 {
		t := time.NewTicker(cfg.SweepInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { runSweep(ctx, dispatcher, logger) })
	}

	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, pool, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

func runSweep(ctx context.Context, dispatcher *notify.Dispatcher, logger *slog.Logger) {
	result, err := dispatcher.RunReminderSweep(ctx)
	if err != nil {
		logger.Error("Reminder sweep failed", "error", err)
		return
	}
	if result.Matched > 0 {
		logger.Info("Reminder sweep complete", "summary", result.Summary())
	}
}

// cleanup purges donations completed more than 90 days ago. History views
// only reach back a quarter; older rows are dead weight on the sweep-side
// indexes.
func cleanup(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM donations
		WHERE status = 'completed'
		  AND updated_at < NOW() - INTERVAL '90 days'`)
	if err != nil {
		logger.Warn("Cleanup: failed to purge old donations", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Cleanup: purged old donations", "count", tag.RowsAffected())
	}
}
