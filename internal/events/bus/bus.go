// Package bus carries job and generation notifications between the engine,
// the services and websocket streams. Subjects follow NATS conventions:
// dot-separated tokens, with * matching one token and > the remainder.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one notification. Data holds the JSON-compatible payload.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent stamps a payload with a fresh id and the current UTC time.
func NewEvent(eventType, source string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventHandler consumes one event. A returned error is logged by the bus.
type EventHandler func(ctx context.Context, event *Event) error

// Subscription is a live handler registration.
type Subscription interface {
	Unsubscribe() error
	IsValid() bool
}

// EventBus publishes events and fans them out to subject subscribers. Each
// subscriber receives the events of a subject in publish order.
type EventBus interface {
	Publish(ctx context.Context, subject string, event *Event) error
	Subscribe(subject string, handler EventHandler) (Subscription, error)
	Close()
	// IsConnected is false once the bus is closed or has lost its server.
	IsConnected() bool
}
