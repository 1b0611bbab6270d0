// Package events carries normalized channel messages between the webhook
// ingest path and the worker. Two bus implementations exist: Redis Streams
// (default) and NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeMessageReceived = "message.received"
	TypeDocumentAdded   = "document.added"
)

// Event is the unit moved across the bus. Payload is the JSON encoding of a
// domain struct (e.g. channel.InboundMessage).
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// Delivery wraps an Event with its acknowledgement. Ack must be called only
// after the event has been fully handled (or deliberately dropped); pending
// deliveries are redelivered to another consumer.
type Delivery struct {
	Event
	Ack func(ctx context.Context) error
}

// Bus is the publish/subscribe contract shared by implementations.
type Bus interface {
	// Publish appends an event to the stream.
	Publish(ctx context.Context, event Event) error

	// Subscribe joins the consumer group and delivers events until ctx is
	// canceled. The returned channel is closed on cancellation.
	Subscribe(ctx context.Context) (<-chan Delivery, error)

	Close() error
}

// DocumentAdded is the payload of TypeDocumentAdded events: a document whose
// content is waiting to be chunked and embedded by the worker.
type DocumentAdded struct {
	CreatorID  uuid.UUID `json:"creatorId"`
	DocumentID uuid.UUID `json:"documentId"`
	Content    string    `json:"content"`
}

var ErrBusClosed = errors.New("event bus closed")

// NewEvent wraps a payload struct into an Event of the given type.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:    eventType,
		Payload: raw,
		At:      time.Now().UTC(),
	}, nil
}
