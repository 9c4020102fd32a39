// Package push delivers notification batches through Firebase Cloud
// Messaging.
package push

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/mealbridge/notify/internal/notify"
)

// FCMSender sends push notifications via Firebase Cloud Messaging.
// Nil-safe: when not configured, all methods are no-ops.
type FCMSender struct {
	client *messaging.Client
	logger *slog.Logger
}

// NewFCMSender creates an FCM sender from a service account credentials file.
// Returns (nil, nil) if credentialsFile is empty (push delivery disabled).
func NewFCMSender(ctx context.Context, credentialsFile string, logger *slog.Logger) (*FCMSender, error) {
	if credentialsFile == "" {
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}

	return &FCMSender{client: client, logger: logger}, nil
}

// SendBatch delivers a batch with SendEach and maps the per-message
// responses onto notify.SendResult. A transport-level failure returns an
// error with no results; individual token rejections come back in the
// results and never abort the batch.
func (s *FCMSender) SendBatch(ctx context.Context, batch []notify.Message) ([]notify.SendResult, error) {
	if s == nil {
		// Push disabled: report every message as accepted so callers'
		// dedup bookkeeping still runs in development environments.
		results := make([]notify.SendResult, len(batch))
		for i, m := range batch {
			results[i] = notify.SendResult{Token: m.Token}
		}
		return results, nil
	}
	if len(batch) == 0 {
		return nil, nil
	}

	msgs := make([]*messaging.Message, len(batch))
	for i, m := range batch {
		msgs[i] = &messaging.Message{
			Token: m.Token,
			Notification: &messaging.Notification{
				Title: m.Title,
				Body:  m.Body,
			},
			Data: map[string]string{
				"action": string(m.Action),
			},
		}
	}

	resp, err := s.client.SendEach(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("fcm send each: %w", err)
	}

	results := make([]notify.SendResult, len(batch))
	for i, r := range resp.Responses {
		results[i] = notify.SendResult{Token: batch[i].Token, Err: r.Error}
	}
	if resp.FailureCount > 0 {
		s.logger.Warn("fcm batch partially failed",
			"success", resp.SuccessCount, "failure", resp.FailureCount)
	}
	return results, nil
}
