package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/mealbridge")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.TimeZone != "Asia/Kuala_Lumpur" {
		t.Errorf("TimeZone = %q", cfg.TimeZone)
	}
	if cfg.ReminderLeadMinutes != 60 {
		t.Errorf("ReminderLeadMinutes = %d", cfg.ReminderLeadMinutes)
	}
	if cfg.PollIntervalMinutes != 15 {
		t.Errorf("PollIntervalMinutes = %d", cfg.PollIntervalMinutes)
	}
	// Default trigger window tracks the poll interval at 2x.
	if cfg.TriggerWindowMinutes != 30 {
		t.Errorf("TriggerWindowMinutes = %d", cfg.TriggerWindowMinutes)
	}
	if cfg.ProximityRadiusKm != 10 {
		t.Errorf("ProximityRadiusKm = %v", cfg.ProximityRadiusKm)
	}
	if cfg.RolloverCutoffHour != 12 {
		t.Errorf("RolloverCutoffHour = %d", cfg.RolloverCutoffHour)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load must fail without DATABASE_URL")
	}
}

func TestTriggerWindowFollowsPollInterval(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/mealbridge")
	t.Setenv("POLL_INTERVAL_MINUTES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TriggerWindowMinutes != 10 {
		t.Errorf("TriggerWindowMinutes = %d, want 10", cfg.TriggerWindowMinutes)
	}

	t.Setenv("TRIGGER_WINDOW_MINUTES", "45")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TriggerWindowMinutes != 45 {
		t.Errorf("explicit TriggerWindowMinutes = %d, want 45", cfg.TriggerWindowMinutes)
	}
}

func TestPolicyMapping(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/mealbridge")
	t.Setenv("REMINDER_LEAD_MINUTES", "90")
	t.Setenv("PROXIMITY_RADIUS_KM", "7.5")
	t.Setenv("ROLLOVER_CUTOFF_HOUR", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	p := cfg.Policy()
	if p.ReminderLead != 90*time.Minute {
		t.Errorf("ReminderLead = %v", p.ReminderLead)
	}
	if p.RadiusKm != 7.5 {
		t.Errorf("RadiusKm = %v", p.RadiusKm)
	}
	if p.RolloverCutoffHour != 10 {
		t.Errorf("RolloverCutoffHour = %d", p.RolloverCutoffHour)
	}
	if p.TriggerWindow != 30*time.Minute {
		t.Errorf("TriggerWindow = %v", p.TriggerWindow)
	}
}
