// Package creator manages the tenant-scoped resources a creator owns:
// assistant settings, clients reached through channels, and knowledge-base
// document metadata. All queries run under PostgreSQL row-level security.
package creator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Assistant holds a creator's AI assistant settings. One row per creator.
type Assistant struct {
	CreatorID   uuid.UUID `json:"creator_id"`
	Persona     string    `json:"persona"`
	Greeting    string    `json:"greeting"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks assistant settings before persisting.
func (a *Assistant) Validate() error {
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if len(a.Persona) > 8000 {
		return fmt.Errorf("persona must be at most 8000 characters")
	}
	return nil
}

// Client is an end user talking to the assistant through a channel. A client
// is identified by (channel, external ID), e.g. a WhatsApp phone number or a
// Telegram chat ID.
type Client struct {
	ID          uuid.UUID `json:"id"`
	CreatorID   uuid.UUID `json:"creator_id"`
	Channel     string    `json:"channel"`
	ExternalID  string    `json:"external_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Document status values.
const (
	DocumentPending = "pending"
	DocumentReady   = "ready"
	DocumentFailed  = "failed"
)

// Document is knowledge-base document metadata. The content itself lives as
// chunks in the vector store.
type Document struct {
	ID         uuid.UUID `json:"id"`
	CreatorID  uuid.UUID `json:"creator_id"`
	Title      string    `json:"title"`
	Source     string    `json:"source"`
	Status     string    `json:"status"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
