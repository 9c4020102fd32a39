// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mealbridge/notify/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the API and dispatcher
// layers use. Prepared statements eliminate parse overhead on every sweep.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Users
		"approved_users_by_role": `
			SELECT id, role, push_token, closing_time, opening_time,
			       last_reminder_date, latitude, longitude, approved, email
			FROM users
			WHERE role = $1 AND approved = true`,
		"user_by_id": `
			SELECT id, role, push_token, closing_time, opening_time,
			       last_reminder_date, latitude, longitude, approved, email
			FROM users
			WHERE id = $1`,
		"set_last_reminder_date": `
			UPDATE users SET last_reminder_date = $2, updated_at = NOW()
			WHERE id = $1`,
		"set_push_token": `
			UPDATE users SET push_token = $2, updated_at = NOW()
			WHERE id = $1`,

		// Donations
		"donation_by_id": `
			SELECT id, title, latitude, longitude, status, restaurant_id, ngo_id
			FROM donations
			WHERE id = $1`,
		"insert_donation": `
			INSERT INTO donations (title, latitude, longitude, status, restaurant_id)
			VALUES ($1, $2, $3, 'available', $4)
			RETURNING id`,
		"update_donation_status": `
			UPDATE donations
			SET status = $2, ngo_id = COALESCE($3, ngo_id), updated_at = NOW()
			WHERE id = $1 AND status = $4
			RETURNING id`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
