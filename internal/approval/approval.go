// Package approval notifies users when the (external) approval workflow
// flips their account to approved: one push and one email. This sits beside
// the notification engine, not inside it.
package approval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mealbridge/notify/internal/notify"
	"github.com/mealbridge/notify/internal/store"
)

// Notifier sends account-approved notices.
type Notifier struct {
	users  *store.Users
	push   notify.PushSink
	mail   notify.EmailSink
	logger *slog.Logger
}

// New wires an approval notifier.
func New(users *store.Users, push notify.PushSink, mail notify.EmailSink, logger *slog.Logger) *Notifier {
	return &Notifier{users: users, push: push, mail: mail, logger: logger}
}

// HandleApproved sends the approval notices for one user. Missing tokens
// and addresses are silent skips; only repository failures propagate.
func (n *Notifier) HandleApproved(ctx context.Context, userID string) error {
	profile, err := n.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get approved user: %w", err)
	}
	if profile == nil {
		return nil
	}

	action := notify.ActionOpenRestaurantDashboard
	if profile.Role == notify.RoleNGO {
		action = notify.ActionOpenNGODashboard
	}

	if profile.PushToken != "" {
		results, err := n.push.SendBatch(ctx, []notify.Message{{
			Token:       profile.PushToken,
			Title:       "Account Approved 🎉",
			Body:        "Your account has been approved. Welcome aboard!",
			Action:      action,
			RecipientID: profile.ID,
		}})
		if err != nil {
			n.logger.Warn("approval push failed", "user_id", userID, "error", err)
		} else {
			for _, r := range results {
				if r.Err != nil {
					n.logger.Warn("approval push rejected", "user_id", userID, "error", r.Err)
				}
			}
		}
	}

	email, err := n.users.GetEmail(ctx, userID)
	if err != nil {
		return fmt.Errorf("get approved user email: %w", err)
	}
	if email == "" {
		return nil
	}
	if err := n.mail.Send(ctx, email,
		"Your account has been approved",
		"Hello!\n\nYour account has been approved and you can now use the app.\n"); err != nil {
		n.logger.Warn("approval email failed", "user_id", userID, "error", err)
	}
	return nil
}
