package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the action part of an event name
type EventType string

const (
	EventTypeCreated     EventType = "created"
	EventTypePaid        EventType = "paid"
	EventTypeFinalized   EventType = "finalized"
	EventTypeInvalidated EventType = "invalidated"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeBilling   EntityType = "billing"
	EntityTypeDashboard EntityType = "dashboard"
)

// Event is the message sent to clients.
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"` // e.g. "billing.paid"
	Entity    EntityType  `json:"entity"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// BillingCreated creates a billing.created event
func BillingCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeBilling, payload)
}

// BillingPaid creates a billing.paid event
func BillingPaid(payload interface{}) Event {
	return NewEvent(EventTypePaid, EntityTypeBilling, payload)
}

// BillingFinalized creates a billing.finalized event
func BillingFinalized(payload interface{}) Event {
	return NewEvent(EventTypeFinalized, EntityTypeBilling, payload)
}

// DashboardInvalidated tells clients to refetch their dashboard summary
func DashboardInvalidated(payload interface{}) Event {
	return NewEvent(EventTypeInvalidated, EntityTypeDashboard, payload)
}
