package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the interface all published events must implement.
type DomainEvent interface {
	EventType() string
	AggregateID() uuid.UUID
}

// Envelope is the wire format every event is published in.
type Envelope struct {
	OccurredAt  time.Time       `json:"occurred_at"`
	Type        string          `json:"type"`
	Source      string          `json:"source"`
	Data        json.RawMessage `json:"data"`
	ID          uuid.UUID       `json:"id"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
}

// Wrap serializes event into a new Envelope with a generated ID and the current time.
func Wrap(source string, event DomainEvent) (Envelope, error) {
	if event == nil {
		return Envelope{}, fmt.Errorf("events: nil event")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", event.EventType(), err)
	}

	return Envelope{
		ID:          uuid.New(),
		Type:        event.EventType(),
		Source:      source,
		AggregateID: event.AggregateID(),
		OccurredAt:  time.Now().UTC(),
		Data:        data,
	}, nil
}

// Marshal returns the JSON encoding of the envelope.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
