// Package notify decides whether, and to whom, a push notification must be
// sent for donation events: a restaurant approaching closing time (donate
// your surplus), a new donation near an NGO, and the reservation lifecycle
// of a donation.
//
// Pipeline: evaluate (pure window/distance/transition checks) → batch →
// send via the push sink → persist the reminder dedup flag. The evaluators
// carry no I/O; the Dispatcher orchestrates them against injected
// repository and sink ports.
package notify

import (
	"context"
	"errors"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// DateLayout is the calendar-date format used for reminder dedup flags.
	DateLayout = "2006-01-02"

	clockLayout = "15:04"

	defaultReminderLead  = time.Hour
	defaultTriggerWindow = 30 * time.Minute
	defaultRadiusKm      = 10.0

	// Closing times earlier than this hour that have already passed are
	// assumed to mean "tomorrow"; later ones are treated as missed.
	defaultRolloverCutoffHour = 12
)

// ErrMalformedTime reports an unparseable HH:MM closing or opening time.
// Callers skip the offending entity and continue the sweep.
var ErrMalformedTime = errors.New("malformed HH:MM time")

// --------------------------------------------------------------------------
// Domain types
// --------------------------------------------------------------------------

// Role distinguishes the two user populations.
type Role string

const (
	RoleRestaurant Role = "restaurant"
	RoleNGO        Role = "ngo"
)

// Status is a donation's lifecycle state. Transitions are forward-only:
// available → reserved → confirmed → completed.
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
)

// Action routes the receiving mobile client to a screen.
type Action string

const (
	ActionDonate                  Action = "DONATE_ACTION"
	ActionOpenNGODashboard        Action = "OPEN_NGO_DASHBOARD"
	ActionOpenRestaurantDashboard Action = "OPEN_RESTAURANT_DASHBOARD"
	ActionOpenRestaurantHistory   Action = "OPEN_RESTAURANT_HISTORY"
)

// Profile is a restaurant or NGO account as read from the user repository.
// Optional fields are empty strings / nil pointers when absent.
type Profile struct {
	ID               string
	Role             Role
	PushToken        string
	ClosingTime      string // "HH:MM", restaurants only
	OpeningTime      string // "HH:MM", restaurants only
	LastReminderDate string // "YYYY-MM-DD"
	Latitude         *float64
	Longitude        *float64
	Approved         bool
}

// Donation is a snapshot of a donation document. Status changes arrive as
// before/after snapshot pairs from the change feed; this package only
// observes them.
type Donation struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Status       Status   `json:"status"`
	RestaurantID string   `json:"restaurant_id"`
	NgoID        string   `json:"ngo_id,omitempty"`
}

// Message is one outbound push notification.
type Message struct {
	Token  string
	Title  string
	Body   string
	Action Action

	// RecipientID is dedup bookkeeping only; it is not sent to the device.
	RecipientID string
}

// SendResult is the per-message outcome of a batch send.
type SendResult struct {
	Token string
	Err   error
}

// --------------------------------------------------------------------------
// Ports
// --------------------------------------------------------------------------

// UserRepository supplies restaurant and NGO profiles and persists the
// reminder dedup flag.
type UserRepository interface {
	ListApprovedByRole(ctx context.Context, role Role) ([]Profile, error)
	// GetByID returns nil with no error when the profile does not exist.
	GetByID(ctx context.Context, id string) (*Profile, error)
	SetLastReminderDate(ctx context.Context, id, date string) error
}

// PushSink delivers a batch of messages, reporting per-message results.
// A non-nil error means the batch as a whole was not acknowledged.
type PushSink interface {
	SendBatch(ctx context.Context, batch []Message) ([]SendResult, error)
}

// EmailSink sends a plain-text email. Used by the approval notifier, not by
// the dispatcher itself.
type EmailSink interface {
	Send(ctx context.Context, to, subject, body string) error
}

// --------------------------------------------------------------------------
// Policy
// --------------------------------------------------------------------------

// Policy holds the tunable decision parameters. The zero value is not
// usable; construct with DefaultPolicy.
type Policy struct {
	// ReminderLead is how long before closing the reminder should fire.
	ReminderLead time.Duration
	// TriggerWindow is the tolerance after the ideal reminder instant
	// during which a late sweep may still fire, inclusive at the boundary.
	TriggerWindow time.Duration
	// RadiusKm bounds the proximity broadcast, inclusive.
	RadiusKm float64
	// RolloverCutoffHour: a passed closing time with no opening-time hint
	// rolls to tomorrow only when its hour is below this cutoff.
	RolloverCutoffHour int
}

// DefaultPolicy returns production defaults: 1h lead, 30m window (twice the
// 15-minute poll interval), 10 km radius, noon rollover cutoff.
func DefaultPolicy() Policy {
	return Policy{
		ReminderLead:       defaultReminderLead,
		TriggerWindow:      defaultTriggerWindow,
		RadiusKm:           defaultRadiusKm,
		RolloverCutoffHour: defaultRolloverCutoffHour,
	}
}
