// Package events publishes inventory and alert events
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types. They double as AMQP routing keys.
const (
	TypeProductAdded   = "product.added"
	TypeProductUpdated = "product.updated"
	TypeProductDeleted = "product.deleted"
	TypeStockDeducted  = "stock.deducted"
	TypeStockLow       = "stock.low"
	TypeSessionStarted = "session.started"
	TypeSessionEnded   = "session.ended"
)

// Event is a single published fact
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// New builds an event with a fresh id and payload encoded as JSON
func New(eventType string, payload any) (Event, error) {
	e := Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		e.Payload = data
	}
	return e, nil
}

// Publisher delivers events somewhere
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Emit builds and publishes an event. Failures are returned, never fatal;
// callers usually log them and carry on.
func Emit(ctx context.Context, p Publisher, eventType string, payload any) error {
	if p == nil {
		return nil
	}
	e, err := New(eventType, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, e)
}
