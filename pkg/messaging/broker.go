package messaging

import (
	"context"
	"time"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Event is the envelope pushed to connected sessions.
type Event struct {
	Type       string      `json:"type"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Event types
const (
	EventAlertTriggered   = "alert.triggered"
	EventWorkflowReminder = "workflow.reminder"
)

// Realtime is the push side of the realtime transport.
type Realtime interface {
	// BroadcastToAdministrators reaches every connected administrative session.
	BroadcastToAdministrators(ctx context.Context, event Event) error
}
