// Package listener provides a Postgres LISTEN/NOTIFY consumer for the
// donation change feed. It holds a dedicated pgx connection (not from the
// pool) listening on the donation_events and user_events channels.
//
// Table triggers publish a JSON payload for every donation insert/status
// change and every approval flip; this consumer decodes the event and
// invokes the dispatcher, replacing the original platform's document
// created/updated hooks.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mealbridge/notify/internal/approval"
	"github.com/mealbridge/notify/internal/notify"
	"github.com/mealbridge/notify/internal/store"
)

const (
	donationChannel = "donation_events"
	userChannel     = "user_events"

	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// DonationEvent is the JSON payload from pg_notify('donation_events', ...).
type DonationEvent struct {
	Event        string `json:"event"` // donation_created | donation_updated
	DonationID   string `json:"donation_id"`
	BeforeStatus string `json:"before_status,omitempty"`
	AfterStatus  string `json:"after_status,omitempty"`
}

// UserEvent is the JSON payload from pg_notify('user_events', ...).
type UserEvent struct {
	Event  string `json:"event"` // user_approved
	UserID string `json:"user_id"`
}

// Listener consumes change-feed events and routes them to the dispatcher.
type Listener struct {
	dbURL      string
	dispatcher *notify.Dispatcher
	donations  *store.Donations
	approvals  *approval.Notifier
	logger     *slog.Logger
}

// New wires a change-feed listener.
func New(dbURL string, dispatcher *notify.Dispatcher, donations *store.Donations, approvals *approval.Notifier, logger *slog.Logger) *Listener {
	return &Listener{
		dbURL:      dbURL,
		dispatcher: dispatcher,
		donations:  donations,
		approvals:  approvals,
		logger:     logger,
	}
}

// Start opens a dedicated connection and listens on both channels. It
// reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func (l *Listener) Start(ctx context.Context) {
	backoff := reconnectBackoff

	for {
		err := l.listenLoop(ctx)
		if ctx.Err() != nil {
			l.logger.Info("Change-feed listener stopped (context cancelled)")
			return
		}

		l.logger.Error("Change-feed listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection
// drops or the context is cancelled.
func (l *Listener) listenLoop(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	for _, ch := range []string{donationChannel, userChannel} {
		if _, err := conn.Exec(ctx, "LISTEN "+ch); err != nil {
			return fmt.Errorf("LISTEN %s: %w", ch, err)
		}
	}
	l.logger.Info("Change-feed listener connected",
		"channels", []string{donationChannel, userChannel})

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		switch notification.Channel {
		case donationChannel:
			var event DonationEvent
			if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
				l.logger.Warn("Failed to parse donation event",
					"payload", notification.Payload, "error", err)
				continue
			}
			// Process asynchronously to avoid blocking the listener.
			go l.handleDonationEvent(ctx, event)
		case userChannel:
			var event UserEvent
			if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
				l.logger.Warn("Failed to parse user event",
					"payload", notification.Payload, "error", err)
				continue
			}
			go l.handleUserEvent(ctx, event)
		}
	}
}

// handleDonationEvent resolves the donation snapshot and invokes the
// matching dispatcher operation.
func (l *Listener) handleDonationEvent(ctx context.Context, event DonationEvent) {
	donation, err := l.donations.GetByID(ctx, event.DonationID)
	if err != nil {
		l.logger.Warn("Failed to load donation for event",
			"donation_id", event.DonationID, "error", err)
		return
	}
	if donation == nil {
		return
	}

	switch event.Event {
	case "donation_created":
		sent, err := l.dispatcher.RunProximityBroadcast(ctx, *donation)
		if err != nil {
			l.logger.Error("Proximity broadcast failed",
				"donation_id", event.DonationID, "error", err)
			return
		}
		l.logger.Info("Proximity broadcast complete",
			"donation_id", event.DonationID, "sent", sent)
	case "donation_updated":
		// The payload carries the exact observed transition; the fetched
		// row may already have advanced further under concurrent writes.
		before := *donation
		before.Status = notify.Status(event.BeforeStatus)
		after := *donation
		after.Status = notify.Status(event.AfterStatus)

		if err := l.dispatcher.RunLifecycleNotification(ctx, before, after); err != nil {
			l.logger.Error("Lifecycle notification failed",
				"donation_id", event.DonationID, "error", err)
		}
	default:
		l.logger.Warn("Unknown donation event", "event", event.Event)
	}
}

func (l *Listener) handleUserEvent(ctx context.Context, event UserEvent) {
	if event.Event != "user_approved" {
		l.logger.Warn("Unknown user event", "event", event.Event)
		return
	}
	if err := l.approvals.HandleApproved(ctx, event.UserID); err != nil {
		l.logger.Error("Approval notice failed", "user_id", event.UserID, "error", err)
	}
}
