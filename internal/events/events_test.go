package events

import (
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	e := New(TypeSaleCreated, 42, map[string]string{"client": "Ana"})

	if e.Type != TypeSaleCreated {
		t.Errorf("New() Type = %v, want %v", e.Type, TypeSaleCreated)
	}
	if e.SaleID != 42 {
		t.Errorf("New() SaleID = %v, want 42", e.SaleID)
	}
	if e.At.IsZero() {
		t.Error("New() At should not be zero")
	}
	if time.Since(e.At) > time.Second {
		t.Error("New() At should be recent")
	}
	if e.Fields["client"] != "Ana" {
		t.Errorf("New() Fields = %v", e.Fields)
	}
}

func TestEvent_JSON(t *testing.T) {
	at := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	e := Event{
		Type:   TypePaymentApplied,
		SaleID: 7,
		At:     at,
		Fields: map[string]string{"amount": "$50.00", "closed": "false"},
	}

	jsonBytes, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := FromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}

	if parsed.Type != e.Type {
		t.Errorf("Parsed Type = %v, want %v", parsed.Type, e.Type)
	}
	if parsed.SaleID != e.SaleID {
		t.Errorf("Parsed SaleID = %v, want %v", parsed.SaleID, e.SaleID)
	}
	if !parsed.At.Equal(e.At) {
		t.Errorf("Parsed At = %v, want %v", parsed.At, e.At)
	}
	if parsed.Fields["amount"] != "$50.00" {
		t.Errorf("Parsed Fields = %v", parsed.Fields)
	}
}

func TestEvent_InvalidJSON(t *testing.T) {
	if _, err := FromJSON([]byte(`{"sale_id": "not_a_number"}`)); err == nil {
		t.Error("FromJSON() should fail with invalid JSON")
	}
}
