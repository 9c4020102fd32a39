package notify

import "fmt"

// Notice describes the notification owed for one lifecycle transition.
type Notice struct {
	Recipient  Role
	Title      string
	Action     Action
	bodyFormat string
}

// Body renders the notice body for a donation title.
func (n Notice) Body(donationTitle string) string {
	return fmt.Sprintf(n.bodyFormat, donationTitle)
}

// TargetID returns the profile ID the notice is addressed to.
func (n Notice) TargetID(d Donation) string {
	if n.Recipient == RoleNGO {
		return d.NgoID
	}
	return d.RestaurantID
}

type transition struct {
	from, to Status
}

// The three guarded forward edges. Everything else — no-op updates,
// regressions, skipped states — is a non-transition and produces nothing.
var transitionNotices = map[transition]Notice{
	{StatusAvailable, StatusReserved}: {
		Recipient:  RoleRestaurant,
		Title:      "Donation Reserved 🧾",
		Action:     ActionOpenRestaurantDashboard,
		bodyFormat: "NGO reserved %q. Please confirm.",
	},
	{StatusReserved, StatusConfirmed}: {
		Recipient:  RoleNGO,
		Title:      "Pickup Confirmed ✅",
		Action:     ActionOpenNGODashboard,
		bodyFormat: "Restaurant confirmed %q.",
	},
	{StatusConfirmed, StatusCompleted}: {
		Recipient:  RoleRestaurant,
		Title:      "Food Collected 🎉",
		Action:     ActionOpenRestaurantHistory,
		bodyFormat: "%q has been collected. Thank you!",
	},
}

// TransitionNotice looks up the notice for a (before, after) status pair.
// ok is false when the pair matches no guarded transition.
func TransitionNotice(before, after Status) (notice Notice, ok bool) {
	notice, ok = transitionNotices[transition{before, after}]
	return notice, ok
}
