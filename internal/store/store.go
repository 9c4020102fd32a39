// Package store implements the notification engine's repository ports on
// Postgres via pgxpool prepared statements.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mealbridge/notify/internal/notify"
)

// Users is the Postgres-backed notify.UserRepository.
type Users struct {
	pool *pgxpool.Pool
}

// NewUsers creates a user repository on the shared pool.
func NewUsers(pool *pgxpool.Pool) *Users {
	return &Users{pool: pool}
}

// userRow mirrors the users table's nullable columns.
type userRow struct {
	ID               string
	Role             string
	PushToken        *string
	ClosingTime      *string
	OpeningTime      *string
	LastReminderDate *string
	Latitude         *float64
	Longitude        *float64
	Approved         bool
	Email            *string
}

func (r userRow) toProfile() notify.Profile {
	return notify.Profile{
		ID:               r.ID,
		Role:             notify.Role(r.Role),
		PushToken:        deref(r.PushToken),
		ClosingTime:      deref(r.ClosingTime),
		OpeningTime:      deref(r.OpeningTime),
		LastReminderDate: deref(r.LastReminderDate),
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		Approved:         r.Approved,
	}
}

// ListApprovedByRole returns all approved profiles for a role.
func (u *Users) ListApprovedByRole(ctx context.Context, role notify.Role) ([]notify.Profile, error) {
	rows, err := u.pool.Query(ctx, "approved_users_by_role", string(role))
	if err != nil {
		return nil, fmt.Errorf("list approved %s users: %w", role, err)
	}
	defer rows.Close()

	var profiles []notify.Profile
	for rows.Next() {
		var r userRow
		if err := rows.Scan(
			&r.ID, &r.Role, &r.PushToken, &r.ClosingTime, &r.OpeningTime,
			&r.LastReminderDate, &r.Latitude, &r.Longitude, &r.Approved, &r.Email,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		profiles = append(profiles, r.toProfile())
	}
	return profiles, rows.Err()
}

// GetByID returns one profile, or nil when it does not exist.
func (u *Users) GetByID(ctx context.Context, id string) (*notify.Profile, error) {
	var r userRow
	err := u.pool.QueryRow(ctx, "user_by_id", id).Scan(
		&r.ID, &r.Role, &r.PushToken, &r.ClosingTime, &r.OpeningTime,
		&r.LastReminderDate, &r.Latitude, &r.Longitude, &r.Approved, &r.Email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	p := r.toProfile()
	return &p, nil
}

// GetEmail returns a user's email address, empty when unset or the user is
// missing. Used by the approval notifier only.
func (u *Users) GetEmail(ctx context.Context, id string) (string, error) {
	var r userRow
	err := u.pool.QueryRow(ctx, "user_by_id", id).Scan(
		&r.ID, &r.Role, &r.PushToken, &r.ClosingTime, &r.OpeningTime,
		&r.LastReminderDate, &r.Latitude, &r.Longitude, &r.Approved, &r.Email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get user %s: %w", id, err)
	}
	return deref(r.Email), nil
}

// SetLastReminderDate persists the reminder dedup flag.
func (u *Users) SetLastReminderDate(ctx context.Context, id, date string) error {
	if _, err := u.pool.Exec(ctx, "set_last_reminder_date", id, date); err != nil {
		return fmt.Errorf("set last reminder date for %s: %w", id, err)
	}
	return nil
}

// SetPushToken stores or clears a user's device token. Pass empty to clear.
func (u *Users) SetPushToken(ctx context.Context, id, token string) error {
	var t *string
	if token != "" {
		t = &token
	}
	if _, err := u.pool.Exec(ctx, "set_push_token", id, t); err != nil {
		return fmt.Errorf("set push token for %s: %w", id, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Donations
// --------------------------------------------------------------------------

// Donations is the Postgres-backed donation repository. The change feed
// pushes before/after snapshots; this store serves lookups and the API's
// writes (whose triggers emit those snapshots).
type Donations struct {
	pool *pgxpool.Pool
}

// NewDonations creates a donation repository on the shared pool.
func NewDonations(pool *pgxpool.Pool) *Donations {
	return &Donations{pool: pool}
}

// GetByID returns one donation, or nil when it does not exist.
func (d *Donations) GetByID(ctx context.Context, id string) (*notify.Donation, error) {
	var (
		don          notify.Donation
		status       string
		restaurantID *string
		ngoID        *string
	)
	err := d.pool.QueryRow(ctx, "donation_by_id", id).Scan(
		&don.ID, &don.Title, &don.Latitude, &don.Longitude,
		&status, &restaurantID, &ngoID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get donation %s: %w", id, err)
	}
	don.Status = notify.Status(status)
	don.RestaurantID = deref(restaurantID)
	don.NgoID = deref(ngoID)
	return &don, nil
}

// Create inserts an available donation and returns its id. The insert
// trigger publishes a donation_created event on the change feed.
func (d *Donations) Create(ctx context.Context, title string, lat, lon *float64, restaurantID string) (string, error) {
	var id string
	err := d.pool.QueryRow(ctx, "insert_donation", title, lat, lon, restaurantID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert donation: %w", err)
	}
	return id, nil
}

// ErrConflict reports a status update that lost the forward-only guard.
var ErrConflict = errors.New("donation status conflict")

// UpdateStatus advances a donation from exactly the expected prior status.
// Any other current status fails the guard and returns ErrConflict, which
// keeps the lifecycle forward-only and skip-free under concurrent writers.
func (d *Donations) UpdateStatus(ctx context.Context, id string, from, to notify.Status, ngoID string) error {
	var n *string
	if ngoID != "" {
		n = &ngoID
	}
	var updated string
	err := d.pool.QueryRow(ctx, "update_donation_status", id, string(to), n, string(from)).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("donation %s not in status %s: %w", id, from, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update donation %s status: %w", id, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
