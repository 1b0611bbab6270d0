// Package channel ingests messages from the surfaces end users talk through
// (WhatsApp, Telegram, the web widget), normalizes them, and sends assistant
// replies back out.
package channel

import (
	"time"

	"github.com/google/uuid"
)

// Channel names.
const (
	WhatsApp = "whatsapp"
	Telegram = "telegram"
	Widget   = "widget"
)

// InboundMessage is a normalized message from an end user. ProviderMessageID
// is the vendor's ID, used for webhook deduplication.
type InboundMessage struct {
	CreatorID         uuid.UUID `json:"creator_id"`
	Channel           string    `json:"channel"`
	SenderID          string    `json:"sender_id"`
	SenderName        string    `json:"sender_name,omitempty"`
	ConversationID    string    `json:"conversation_id"`
	ProviderMessageID string    `json:"provider_message_id"`
	Text              string    `json:"text"`
	ReceivedAt        time.Time `json:"received_at"`
}

// OutboundMessage is an assistant reply on its way back to a channel.
type OutboundMessage struct {
	CreatorID      uuid.UUID `json:"creator_id"`
	Channel        string    `json:"channel"`
	RecipientID    string    `json:"recipient_id"`
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
}
