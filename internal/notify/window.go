package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ShouldRemind reports whether a closing-time reminder is due at now for a
// restaurant with the given closing/opening times. now must already be in
// the business time zone; conversion is the caller's responsibility.
//
// The reminder instant is ReminderLead before the next closing instant, and
// the function returns true while now lies in [reminderInstant,
// reminderInstant+TriggerWindow], both ends inclusive. A lastReminderDate
// equal to now's calendar date short-circuits to false, which keeps the
// sweep idempotent within a day no matter how often it runs inside the
// window.
//
// Returns ErrMalformedTime when closing does not parse as 24-hour HH:MM.
func (p Policy) ShouldRemind(now time.Time, closing, opening, lastReminderDate string) (bool, error) {
	if lastReminderDate == now.Format(DateLayout) {
		return false, nil
	}

	closeHour, closeMin, err := parseClock(closing)
	if err != nil {
		return false, fmt.Errorf("closing time %q: %w", closing, ErrMalformedTime)
	}

	year, month, day := now.Date()
	closingAt := time.Date(year, month, day, closeHour, closeMin, 0, 0, now.Location())

	nowMinute := now.Hour()*60 + now.Minute()
	closeMinute := closeHour*60 + closeMin

	openHour, openMin, openErr := parseClock(opening)
	switch {
	case openErr == nil && closeMinute <= openHour*60+openMin:
		// Overnight business: closing is on the far side of midnight.
		openMinute := openHour*60 + openMin
		switch {
		case nowMinute >= openMinute:
			// Currently open; tonight's closing lands tomorrow. When now,
			// opening, and closing all coincide this branch wins and rolls.
			closingAt = closingAt.AddDate(0, 0, 1)
		case nowMinute > closeMinute:
			// Between close and open; the next closing is tomorrow.
			closingAt = closingAt.AddDate(0, 0, 1)
		}
		// Otherwise now precedes today's early-morning close: keep today.
	case openErr == nil:
		// Daytime business: closing stays on today's date.
	default:
		// No usable opening time. Roll a passed closing to tomorrow only
		// when it is an early-morning time; a later closing that already
		// passed counts as missed, not as tomorrow's.
		if !closingAt.After(now) && closeHour < p.RolloverCutoffHour {
			closingAt = closingAt.AddDate(0, 0, 1)
		}
	}

	sinceReminder := now.Sub(closingAt.Add(-p.ReminderLead))
	return sinceReminder >= 0 && sinceReminder <= p.TriggerWindow, nil
}

// parseClock parses a strict 24-hour "HH:MM" string.
func parseClock(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	hour, err = strconv.Atoi(strings.TrimSpace(hh))
	if err != nil {
		return 0, 0, fmt.Errorf("hour: %w", err)
	}
	minute, err = strconv.Atoi(strings.TrimSpace(mm))
	if err != nil {
		return 0, 0, fmt.Errorf("minute: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("out of range: %02d:%02d", hour, minute)
	}
	return hour, minute, nil
}
