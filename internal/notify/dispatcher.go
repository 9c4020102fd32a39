package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Dispatcher orchestrates the pure evaluators against the repository and
// push sink ports. It holds no mutable state of its own; the three Run
// methods may execute concurrently.
type Dispatcher struct {
	users  UserRepository
	push   PushSink
	policy Policy
	logger *slog.Logger

	// now returns the current instant already converted to the business
	// time zone. Overridable in tests.
	now func() time.Time
}

// NewDispatcher wires a dispatcher. zone is the business time zone all
// window math runs in.
func NewDispatcher(users UserRepository, push PushSink, policy Policy, zone *time.Location, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		users:  users,
		push:   push,
		policy: policy,
		logger: logger,
		now:    func() time.Time { return time.Now().In(zone) },
	}
}

// SweepResult summarizes one reminder sweep.
type SweepResult struct {
	Evaluated int
	Matched   int
	Sent      int
	Failed    int
}

// Summary renders a one-line human-readable result.
func (r SweepResult) Summary() string {
	return fmt.Sprintf("evaluated=%d matched=%d sent=%d failed=%d",
		r.Evaluated, r.Matched, r.Sent, r.Failed)
}

// RunReminderSweep evaluates every approved restaurant against the closing
// reminder window, sends all matches as one batch, and marks each matched
// restaurant as reminded for today. The dedup flag is written only after
// the batch send is acknowledged; per-message rejections are logged but do
// not block the flag write, since the reminder happened from the business
// perspective and retrying would double-send to the healthy tokens.
func (d *Dispatcher) RunReminderSweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	now := d.now()
	today := now.Format(DateLayout)

	restaurants, err := d.users.ListApprovedByRole(ctx, RoleRestaurant)
	if err != nil {
		return result, fmt.Errorf("list approved restaurants: %w", err)
	}

	var batch []Message
	var matched []Profile
	for _, r := range restaurants {
		if r.PushToken == "" || r.ClosingTime == "" {
			continue
		}
		result.Evaluated++

		due, err := d.policy.ShouldRemind(now, r.ClosingTime, r.OpeningTime, r.LastReminderDate)
		if err != nil {
			if errors.Is(err, ErrMalformedTime) {
				d.logger.Warn("skipping restaurant with malformed time",
					"restaurant_id", r.ID, "error", err)
				continue
			}
			return result, fmt.Errorf("evaluate restaurant %s: %w", r.ID, err)
		}
		if !due {
			continue
		}

		// Re-check the dedup flag right before enqueueing. Overlapping
		// sweeps are not mutually excluded; this narrows the window in
		// which both read a stale flag and double-send.
		fresh, err := d.users.GetByID(ctx, r.ID)
		if err != nil {
			return result, fmt.Errorf("recheck restaurant %s: %w", r.ID, err)
		}
		if fresh == nil || fresh.LastReminderDate == today {
			continue
		}

		batch = append(batch, Message{
			Token:       r.PushToken,
			Title:       "Leftover food reminder 🍱",
			Body:        "You’re closing in 1 hour. Any surplus food to donate?",
			Action:      ActionDonate,
			RecipientID: r.ID,
		})
		matched = append(matched, r)
	}
	result.Matched = len(matched)

	if len(batch) == 0 {
		return result, nil
	}

	results, err := d.push.SendBatch(ctx, batch)
	if err != nil {
		return result, fmt.Errorf("send reminder batch: %w", err)
	}
	result.Sent, result.Failed = tally(results)
	d.logFailures(results, "reminder")

	for _, r := range matched {
		if err := d.users.SetLastReminderDate(ctx, r.ID, today); err != nil {
			d.logger.Warn("failed to persist reminder date",
				"restaurant_id", r.ID, "error", err)
		}
	}

	return result, nil
}

// RunProximityBroadcast notifies every approved NGO within the configured
// radius of a newly created donation. Broadcasts are stateless: a donation
// is created once, so no dedup flag is needed. Returns the number of
// messages accepted by the sink.
func (d *Dispatcher) RunProximityBroadcast(ctx context.Context, donation Donation) (int, error) {
	if donation.Latitude == nil || donation.Longitude == nil {
		d.logger.Debug("donation has no coordinates, skipping broadcast",
			"donation_id", donation.ID)
		return 0, nil
	}

	ngos, err := d.users.ListApprovedByRole(ctx, RoleNGO)
	if err != nil {
		return 0, fmt.Errorf("list approved ngos: %w", err)
	}

	body := donation.Title
	if body == "" {
		body = "A restaurant just donated food"
	}

	var batch []Message
	for _, ngo := range ngos {
		if ngo.PushToken == "" || ngo.Latitude == nil || ngo.Longitude == nil {
			continue
		}
		if !WithinRadius(*donation.Latitude, *donation.Longitude,
			*ngo.Latitude, *ngo.Longitude, d.policy.RadiusKm) {
			continue
		}
		batch = append(batch, Message{
			Token:       ngo.PushToken,
			Title:       "New Food Donation Nearby 🍱",
			Body:        body,
			Action:      ActionOpenNGODashboard,
			RecipientID: ngo.ID,
		})
	}

	if len(batch) == 0 {
		return 0, nil
	}

	results, err := d.push.SendBatch(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("send broadcast batch: %w", err)
	}
	sent, _ := tally(results)
	d.logFailures(results, "broadcast")
	return sent, nil
}

// RunLifecycleNotification sends at most one message for a donation status
// change. Non-matching (before, after) pairs, missing profiles, and missing
// tokens are silent skips.
func (d *Dispatcher) RunLifecycleNotification(ctx context.Context, before, after Donation) error {
	notice, ok := TransitionNotice(before.Status, after.Status)
	if !ok {
		return nil
	}

	targetID := notice.TargetID(after)
	if targetID == "" {
		return nil
	}

	profile, err := d.users.GetByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("get %s %s: %w", notice.Recipient, targetID, err)
	}
	if profile == nil || profile.PushToken == "" {
		return nil
	}

	results, err := d.push.SendBatch(ctx, []Message{{
		Token:       profile.PushToken,
		Title:       notice.Title,
		Body:        notice.Body(after.Title),
		Action:      notice.Action,
		RecipientID: profile.ID,
	}})
	if err != nil {
		return fmt.Errorf("send lifecycle notice: %w", err)
	}
	d.logFailures(results, "lifecycle")
	return nil
}

func tally(results []SendResult) (sent, failed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			sent++
		}
	}
	return sent, failed
}

func (d *Dispatcher) logFailures(results []SendResult, kind string) {
	for _, r := range results {
		if r.Err != nil {
			d.logger.Warn("push delivery rejected",
				"kind", kind, "token", r.Token, "error", r.Err)
		}
	}
}
