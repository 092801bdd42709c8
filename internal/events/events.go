// Package events carries the ledger's domain events. The engine emits
// one event per mutation; consumers (the audit worker, or any other
// collector) subscribe instead of scraping logs.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event types emitted by the ledger.
const (
	TypeSaleCreated    = "sale_created"
	TypePaymentApplied = "payment_applied"
	TypeSaleDeleted    = "sale_deleted"
	TypeMonthClosed    = "month_closed"
)

// Event is the wire shape of a single domain event.
type Event struct {
	Type   string            `json:"type"`
	SaleID int64             `json:"sale_id,omitempty"`
	At     time.Time         `json:"at"`
	Fields map[string]string `json:"fields,omitempty"`
}

// New builds an event stamped with the current time.
func New(eventType string, saleID int64, fields map[string]string) Event {
	return Event{
		Type:   eventType,
		SaleID: saleID,
		At:     time.Now().UTC(),
		Fields: fields,
	}
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an event from JSON bytes.
func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Publisher is the outbound port the ledger publishes through. A nil
// publisher disables events without changing engine behavior.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
