package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// fakeUsers is an in-memory UserRepository.
type fakeUsers struct {
	profiles map[string]*Profile
	// getByIDHook runs before each GetByID, letting tests race a second
	// sweep against the recheck.
	getByIDHook func(id string)
	listErr     error
}

func (f *fakeUsers) ListApprovedByRole(_ context.Context, role Role) ([]Profile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Profile
	for _, p := range f.profiles {
		if p.Role == role && p.Approved {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*Profile, error) {
	if f.getByIDHook != nil {
		f.getByIDHook(id)
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeUsers) SetLastReminderDate(_ context.Context, id, date string) error {
	if p, ok := f.profiles[id]; ok {
		p.LastReminderDate = date
	}
	return nil
}

// fakePush records batches and rejects tokens listed in reject.
type fakePush struct {
	batches [][]Message
	reject  map[string]bool
	err     error
}

func (f *fakePush) SendBatch(_ context.Context, batch []Message) ([]SendResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, batch)
	results := make([]SendResult, len(batch))
	for i, m := range batch {
		results[i] = SendResult{Token: m.Token}
		if f.reject[m.Token] {
			results[i].Err = errors.New("registration token not registered")
		}
	}
	return results, nil
}

func (f *fakePush) sentTokens() []string {
	var out []string
	for _, b := range f.batches {
		for _, m := range b {
			out = append(out, m.Token)
		}
	}
	return out
}

func newTestDispatcher(users *fakeUsers, push *fakePush, now time.Time) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(users, push, DefaultPolicy(), kualaLumpur, logger)
	d.now = func() time.Time { return now }
	return d
}

func ptr(f float64) *float64 { return &f }

func TestRunReminderSweepEndToEnd(t *testing.T) {
	users := &fakeUsers{profiles: map[string]*Profile{
		// In window: closing 19:00, now 18:00.
		"rest-due": {ID: "rest-due", Role: RoleRestaurant, Approved: true,
			PushToken: "tok-due", ClosingTime: "19:00"},
		// Closing already passed, non-overnight heuristic: no reminder.
		"rest-past": {ID: "rest-past", Role: RoleRestaurant, Approved: true,
			PushToken: "tok-past", ClosingTime: "12:00"},
	}}
	push := &fakePush{}
	now := at(18, 0, 0)

	result, err := newTestDispatcher(users, push, now).RunReminderSweep(context.Background())
	if err != nil {
		t.Fatalf("RunReminderSweep returned error: %v", err)
	}

	if got := push.sentTokens(); len(got) != 1 || got[0] != "tok-due" {
		t.Fatalf("sent tokens = %v, want [tok-due]", got)
	}
	if result.Matched != 1 || result.Sent != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result: %s", result.Summary())
	}

	today := now.Format(DateLayout)
	if users.profiles["rest-due"].LastReminderDate != today {
		t.Fatalf("matched restaurant not marked reminded, got %q", users.profiles["rest-due"].LastReminderDate)
	}
	if users.profiles["rest-past"].LastReminderDate != "" {
		t.Fatal("unmatched restaurant must not be marked")
	}

	msg := push.batches[0][0]
	if msg.Action != ActionDonate || msg.RecipientID != "rest-due" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	// Second sweep in the same window: the flag suppresses a resend.
	push2 := &fakePush{}
	result, err = newTestDispatcher(users, push2, now).RunReminderSweep(context.Background())
	if err != nil {
		t.Fatalf("second sweep returned error: %v", err)
	}
	if len(push2.batches) != 0 || result.Matched != 0 {
		t.Fatalf("second sweep re-sent: %s", result.Summary())
	}
}

func TestRunReminderSweepSkipsUnusableProfiles(t *testing.T) {
	users := &fakeUsers{profiles: map[string]*Profile{
		"no-token": {ID: "no-token", Role: RoleRestaurant, Approved: true, ClosingTime: "19:00"},
		"no-close": {ID: "no-close", Role: RoleRestaurant, Approved: true, PushToken: "tok-a"},
		"bad-time": {ID: "bad-time", Role: RoleRestaurant, Approved: true, PushToken: "tok-b", ClosingTime: "25:99"},
		"healthy": {ID: "healthy", Role: RoleRestaurant, Approved: true,
			PushToken: "tok-c", ClosingTime: "19:00"},
	}}
	push := &fakePush{}

	result, err := newTestDispatcher(users, push, at(18, 0, 0)).RunReminderSweep(context.Background())
	if err != nil {
		t.Fatalf("sweep must survive malformed times, got %v", err)
	}
	if got := push.sentTokens(); len(got) != 1 || got[0] != "tok-c" {
		t.Fatalf("sent tokens = %v, want [tok-c]", got)
	}
	if result.Evaluated != 2 { // bad-time and healthy carry token+closing
		t.Fatalf("evaluated = %d, want 2", result.Evaluated)
	}
}

func TestRunReminderSweepPartialFailureStillMarksAll(t *testing.T) {
	users := &fakeUsers{profiles: map[string]*Profile{
		"rest-a": {ID: "rest-a", Role: RoleRestaurant, Approved: true, PushToken: "tok-a", ClosingTime: "19:00"},
		"rest-b": {ID: "rest-b", Role: RoleRestaurant, Approved: true, PushToken: "tok-b", ClosingTime: "19:00"},
	}}
	push := &fakePush{reject: map[string]bool{"tok-b": true}}
	now := at(18, 15, 0)

	result, err := newTestDispatcher(users, push, now).RunReminderSweep(context.Background())
	if err != nil {
		t.Fatalf("partial failure must not abort the sweep: %v", err)
	}
	if result.Sent != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result: %s", result.Summary())
	}

	// Both are marked: the reminder happened from the business perspective,
	// and retrying would double-send to the healthy token.
	today := now.Format(DateLayout)
	for _, id := range []string{"rest-a", "rest-b"} {
		if users.profiles[id].LastReminderDate != today {
			t.Fatalf("%s not marked after partial failure", id)
		}
	}
}

func TestRunReminderSweepWholeBatchFailureDoesNotMark(t *testing.T) {
	users := &fakeUsers{profiles: map[string]*Profile{
		"rest-a": {ID: "rest-a", Role: RoleRestaurant, Approved: true, PushToken: "tok-a", ClosingTime: "19:00"},
	}}
	push := &fakePush{err: errors.New("fcm unreachable")}

	if _, err := newTestDispatcher(users, push, at(18, 0, 0)).RunReminderSweep(context.Background()); err == nil {
		t.Fatal("expected error when the batch send is not acknowledged")
	}
	if users.profiles["rest-a"].LastReminderDate != "" {
		t.Fatal("dedup flag written without send acknowledgment")
	}
}

func TestRunReminderSweepRechecksFlagBeforeEnqueue(t *testing.T) {
	now := at(18, 0, 0)
	today := now.Format(DateLayout)

	users := &fakeUsers{profiles: map[string]*Profile{
		"rest-a": {ID: "rest-a", Role: RoleRestaurant, Approved: true, PushToken: "tok-a", ClosingTime: "19:00"},
	}}
	// Simulate an overlapping sweep winning the race between the list read
	// and this sweep's enqueue: the flag flips during the recheck fetch.
	users.getByIDHook = func(id string) {
		users.profiles[id].LastReminderDate = today
	}
	push := &fakePush{}

	result, err := newTestDispatcher(users, push, now).RunReminderSweep(context.Background())
	if err != nil {
		t.Fatalf("RunReminderSweep returned error: %v", err)
	}
	if len(push.batches) != 0 || result.Matched != 0 {
		t.Fatal("recheck must catch a concurrently written dedup flag")
	}
}

func TestRunProximityBroadcast(t *testing.T) {
	users := &fakeUsers{profiles: map[string]*Profile{
		"ngo-near": {ID: "ngo-near", Role: RoleNGO, Approved: true,
			PushToken: "tok-near", Latitude: ptr(3.1490), Longitude: ptr(101.6869)},
		"ngo-far": {ID: "ngo-far", Role: RoleNGO, Approved: true,
			PushToken: "tok-far", Latitude: ptr(4.0), Longitude: ptr(101.6869)},
		"ngo-no-coords": {ID: "ngo-no-coords", Role: RoleNGO, Approved: true, PushToken: "tok-x"},
		"ngo-no-token": {ID: "ngo-no-token", Role: RoleNGO, Approved: true,
			Latitude: ptr(3.1390), Longitude: ptr(101.6869)},
	}}
	push := &fakePush{}
	d := newTestDispatcher(users, push, at(12, 0, 0))

	donation := Donation{
		ID: "don-1", Title: "5 trays of fried rice",
		Latitude: ptr(3.1390), Longitude: ptr(101.6869),
		Status: StatusAvailable, RestaurantID: "rest-1",
	}
	sent, err := d.RunProximityBroadcast(context.Background(), donation)
	if err != nil {
		t.Fatalf("RunProximityBroadcast returned error: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	msg := push.batches[0][0]
	if msg.Token != "tok-near" || msg.Action != ActionOpenNGODashboard || msg.Body != donation.Title {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestRunProximityBroadcastSkipsWithoutCoordinates(t *testing.T) {
	users := &fakeUsers{profiles: map[string]*Profile{
		"ngo-near": {ID: "ngo-near", Role: RoleNGO, Approved: true,
			PushToken: "tok-near", Latitude: ptr(3.14), Longitude: ptr(101.68)},
	}}
	push := &fakePush{}
	d := newTestDispatcher(users, push, at(12, 0, 0))

	sent, err := d.RunProximityBroadcast(context.Background(), Donation{ID: "don-1", Title: "bread"})
	if err != nil {
		t.Fatalf("RunProximityBroadcast returned error: %v", err)
	}
	if sent != 0 || len(push.batches) != 0 {
		t.Fatal("broadcast must be skipped when the donation has no coordinates")
	}
}

func TestRunLifecycleNotification(t *testing.T) {
	users := &fakeUsers{profiles: map[string]*Profile{
		"rest-1": {ID: "rest-1", Role: RoleRestaurant, Approved: true, PushToken: "tok-rest"},
		"ngo-1":  {ID: "ngo-1", Role: RoleNGO, Approved: true, PushToken: "tok-ngo"},
	}}
	push := &fakePush{}
	d := newTestDispatcher(users, push, at(12, 0, 0))

	donation := func(status Status) Donation {
		return Donation{ID: "don-1", Title: "Nasi Lemak", Status: status,
			RestaurantID: "rest-1", NgoID: "ngo-1"}
	}

	// available→reserved notifies the restaurant.
	err := d.RunLifecycleNotification(context.Background(),
		donation(StatusAvailable), donation(StatusReserved))
	if err != nil {
		t.Fatalf("RunLifecycleNotification returned error: %v", err)
	}
	if got := push.sentTokens(); len(got) != 1 || got[0] != "tok-rest" {
		t.Fatalf("sent tokens = %v, want [tok-rest]", got)
	}

	// reserved→confirmed notifies the NGO.
	if err := d.RunLifecycleNotification(context.Background(),
		donation(StatusReserved), donation(StatusConfirmed)); err != nil {
		t.Fatalf("RunLifecycleNotification returned error: %v", err)
	}
	if got := push.sentTokens(); len(got) != 2 || got[1] != "tok-ngo" {
		t.Fatalf("sent tokens = %v, want [tok-rest tok-ngo]", got)
	}

	// Non-transitions send nothing.
	for _, pair := range [][2]Status{
		{StatusAvailable, StatusConfirmed},
		{StatusConfirmed, StatusConfirmed},
		{StatusReserved, StatusReserved},
		{StatusCompleted, StatusAvailable},
	} {
		if err := d.RunLifecycleNotification(context.Background(),
			donation(pair[0]), donation(pair[1])); err != nil {
			t.Fatalf("non-transition %v returned error: %v", pair, err)
		}
	}
	if got := push.sentTokens(); len(got) != 2 {
		t.Fatalf("non-transitions produced messages: %v", got)
	}
}

func TestRunLifecycleNotificationSilentSkips(t *testing.T) {
	users := &fakeUsers{profiles: map[string]*Profile{
		"rest-silent": {ID: "rest-silent", Role: RoleRestaurant, Approved: true}, // no token
	}}
	push := &fakePush{}
	d := newTestDispatcher(users, push, at(12, 0, 0))

	before := Donation{ID: "d", Status: StatusAvailable, RestaurantID: "rest-silent"}
	after := before
	after.Status = StatusReserved

	// Missing token.
	if err := d.RunLifecycleNotification(context.Background(), before, after); err != nil {
		t.Fatalf("missing token must be a silent skip: %v", err)
	}

	// Missing profile.
	after.RestaurantID = "rest-gone"
	before.RestaurantID = "rest-gone"
	if err := d.RunLifecycleNotification(context.Background(), before, after); err != nil {
		t.Fatalf("missing profile must be a silent skip: %v", err)
	}

	// Empty target id (reserved donation without ngoId).
	if err := d.RunLifecycleNotification(context.Background(),
		Donation{Status: StatusReserved}, Donation{Status: StatusConfirmed}); err != nil {
		t.Fatalf("empty target must be a silent skip: %v", err)
	}

	if len(push.batches) != 0 {
		t.Fatal("silent skips must not send")
	}
}

func TestRunReminderSweepRepositoryErrorAborts(t *testing.T) {
	users := &fakeUsers{listErr: errors.New("connection refused")}
	push := &fakePush{}
	d := newTestDispatcher(users, push, at(18, 0, 0))

	if _, err := d.RunReminderSweep(context.Background()); err == nil {
		t.Fatal("repository error must abort the sweep")
	}
	if _, err := d.RunProximityBroadcast(context.Background(),
		Donation{Latitude: ptr(3.0), Longitude: ptr(101.0)}); err == nil {
		t.Fatal("repository error must abort the broadcast")
	}
}
