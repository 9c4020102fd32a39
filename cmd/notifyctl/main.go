// Command notifyctl is the operator CLI for the notification service.
//
// Usage:
//
//	notifyctl sweep
//	notifyctl broadcast --donation 4f1c...
//	notifyctl lifecycle --donation 4f1c... --from available --to reserved
//	notifyctl testpush --token <fcm-token> --body "hello"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mealbridge/notify/internal/config"
	"github.com/mealbridge/notify/internal/db"
	"github.com/mealbridge/notify/internal/notify"
	"github.com/mealbridge/notify/internal/push"
	"github.com/mealbridge/notify/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "notifyctl",
		Short: "MealBridge notification service operator CLI",
	}

	root.AddCommand(sweepCmd())
	root.AddCommand(broadcastCmd())
	root.AddCommand(lifecycleCmd())
	root.AddCommand(testPushCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// run wires config, pool, and dispatcher, then invokes fn.
func run(fn func(ctx context.Context, deps *deps) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zone, err := cfg.Zone()
	if err != nil {
		return err
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	sender, err := push.NewFCMSender(ctx, cfg.FCMCredentialsFile, logger)
	if err != nil {
		return err
	}
	if sender == nil {
		logger.Info("Push delivery disabled (no FIREBASE_CREDENTIALS_FILE); sends are dry runs")
	}

	users := store.NewUsers(pool.Pool)
	return fn(ctx, &deps{
		donations:  store.NewDonations(pool.Pool),
		dispatcher: notify.NewDispatcher(users, sender, cfg.Policy(), zone, logger),
		sender:     sender,
	})
}

type deps struct {
	donations  *store.Donations
	dispatcher *notify.Dispatcher
	sender     *push.FCMSender
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one closing-time reminder sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, d *deps) error {
				result, err := d.dispatcher.RunReminderSweep(ctx)
				if err != nil {
					return err
				}
				logger.Info("Sweep finished", "summary", result.Summary())
				return nil
			})
		},
	}
}

func broadcastCmd() *cobra.Command {
	var donationID string
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Replay the nearby-NGO broadcast for a donation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, d *deps) error {
				donation, err := d.donations.GetByID(ctx, donationID)
				if err != nil {
					return err
				}
				if donation == nil {
					return fmt.Errorf("donation %s not found", donationID)
				}
				sent, err := d.dispatcher.RunProximityBroadcast(ctx, *donation)
				if err != nil {
					return err
				}
				logger.Info("Broadcast finished", "donation_id", donationID, "sent", sent)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&donationID, "donation", "", "Donation ID")
	cmd.MarkFlagRequired("donation")
	return cmd
}

func lifecycleCmd() *cobra.Command {
	var donationID, from, to string
	cmd := &cobra.Command{
		Use:   "lifecycle",
		Short: "Replay a lifecycle notification for a donation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, d *deps) error {
				donation, err := d.donations.GetByID(ctx, donationID)
				if err != nil {
					return err
				}
				if donation == nil {
					return fmt.Errorf("donation %s not found", donationID)
				}
				before, after := *donation, *donation
				before.Status = notify.Status(from)
				after.Status = notify.Status(to)
				if err := d.dispatcher.RunLifecycleNotification(ctx, before, after); err != nil {
					return err
				}
				logger.Info("Lifecycle notice finished",
					"donation_id", donationID, "from", from, "to", to)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&donationID, "donation", "", "Donation ID")
	cmd.Flags().StringVar(&from, "from", "", "Status before the change")
	cmd.Flags().StringVar(&to, "to", "", "Status after the change")
	cmd.MarkFlagRequired("donation")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func testPushCmd() *cobra.Command {
	var token, title, body string
	cmd := &cobra.Command{
		Use:   "testpush",
		Short: "Send a test notification to one device token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, d *deps) error {
				results, err := d.sender.SendBatch(ctx, []notify.Message{{
					Token:  token,
					Title:  title,
					Body:   body,
					Action: notify.ActionDonate,
				}})
				if err != nil {
					return err
				}
				for _, r := range results {
					if r.Err != nil {
						return fmt.Errorf("delivery rejected: %w", r.Err)
					}
				}
				logger.Info("Test push accepted", "token", token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "FCM device token")
	cmd.Flags().StringVar(&title, "title", "MealBridge test", "Notification title")
	cmd.Flags().StringVar(&body, "body", "Test notification", "Notification body")
	cmd.MarkFlagRequired("token")
	return cmd
}
