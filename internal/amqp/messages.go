package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType names a committed change.
type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
	TripCreated    EventType = "trip.created"
	TripUpdated    EventType = "trip.updated"
	TripDeleted    EventType = "trip.deleted"
	TripReconciled EventType = "trip.reconciled"
)

var knownTypes = map[EventType]bool{
	ExpenseCreated: true, ExpenseUpdated: true, ExpenseDeleted: true,
	TripCreated: true, TripUpdated: true, TripDeleted: true, TripReconciled: true,
}

// ChangeEvent describes one committed mutation. It carries enough display
// data for the exporter to write a row without reading the store.
type ChangeEvent struct {
	Type        EventType `json:"type"`
	OwnerID     string    `json:"ownerId"`
	EntityID    string    `json:"entityId"`
	TripID      string    `json:"tripId,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Created     int       `json:"created,omitempty"`
	Updated     int       `json:"updated,omitempty"`
	Deleted     int       `json:"deleted,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewChangeEvent stamps an event with the current time.
func NewChangeEvent(typ EventType, ownerID, entityID string) ChangeEvent {
	return ChangeEvent{
		Type:      typ,
		OwnerID:   ownerID,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

func (m ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects events the exporter cannot place.
func (m ChangeEvent) Validate() error {
	if !knownTypes[m.Type] {
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.OwnerID == "" || m.EntityID == "" {
		return errors.New("event without owner or entity")
	}
	return nil
}

// ChangeEventFromJSON decodes and validates a message body.
func ChangeEventFromJSON(data []byte) (ChangeEvent, error) {
	var msg ChangeEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return ChangeEvent{}, err
	}
	if err := msg.Validate(); err != nil {
		return ChangeEvent{}, err
	}
	return msg, nil
}
