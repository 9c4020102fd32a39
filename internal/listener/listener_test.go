package listener

import (
	"encoding/json"
	"testing"
)

func TestDonationEventDecoding(t *testing.T) {
	payload := `{"event":"donation_updated","donation_id":"4f1c","before_status":"available","after_status":"reserved"}`

	var event DonationEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.Event != "donation_updated" || event.DonationID != "4f1c" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.BeforeStatus != "available" || event.AfterStatus != "reserved" {
		t.Fatalf("unexpected statuses: %+v", event)
	}

	// Created events omit the status pair.
	payload = `{"event":"donation_created","donation_id":"4f1c"}`
	event = DonationEvent{}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		t.Fatalf("unmarshal created: %v", err)
	}
	if event.BeforeStatus != "" || event.AfterStatus != "" {
		t.Fatalf("created event carries statuses: %+v", event)
	}
}

func TestUserEventDecoding(t *testing.T) {
	var event UserEvent
	if err := json.Unmarshal([]byte(`{"event":"user_approved","user_id":"u1"}`), &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.Event != "user_approved" || event.UserID != "u1" {
		t.Fatalf("unexpected event: %+v", event)
	}
}
