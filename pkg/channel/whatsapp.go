package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/creatorhub/hub/pkg/httputil"
)

// WhatsAppConfig holds Meta Cloud API settings.
type WhatsAppConfig struct {
	VerifyToken   string `mapstructure:"verifyToken"`
	AccessToken   string `mapstructure:"accessToken"`
	PhoneNumberID string `mapstructure:"phoneNumberID"`
	APIURL        string `mapstructure:"apiURL"`
}

// WhatsAppAdapter speaks the Meta Cloud API webhook and message formats.
type WhatsAppAdapter struct {
	config WhatsAppConfig
}

func NewWhatsAppAdapter() *WhatsAppAdapter {
	return &WhatsAppAdapter{}
}

func (a *WhatsAppAdapter) Name() string { return WhatsApp }

func (a *WhatsAppAdapter) Configure(config map[string]any) error {
	a.config = WhatsAppConfig{APIURL: "https://graph.facebook.com/v19.0"}
	return decodeConfig(config, &a.config)
}

// HandleVerification answers Meta's GET handshake: echo hub.challenge when
// hub.verify_token matches.
func (a *WhatsAppAdapter) HandleVerification(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != a.config.VerifyToken {
		httputil.Error(w, http.StatusForbidden, "verification failed")
		return true
	}
	httputil.Text(w, http.StatusOK, q.Get("hub.challenge"))
	return true
}

// whatsappWebhook mirrors just the slice of the Cloud API payload we consume.
type whatsappWebhook struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					ID        string `json:"id"`
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (a *WhatsAppAdapter) Parse(creatorID uuid.UUID, body []byte) ([]InboundMessage, error) {
	var payload whatsappWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode whatsapp webhook: %w", err)
	}

	var messages []InboundMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := map[string]string{}
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			// Status-only payloads (delivery receipts) have no messages.
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.Text.Body == "" {
					continue
				}
				messages = append(messages, InboundMessage{
					CreatorID:         creatorID,
					Channel:           WhatsApp,
					SenderID:          msg.From,
					SenderName:        names[msg.From],
					ConversationID:    msg.From,
					ProviderMessageID: msg.ID,
					Text:              msg.Text.Body,
					ReceivedAt:        time.Now().UTC(),
				})
			}
		}
	}
	return messages, nil
}

type whatsappSendRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (a *WhatsAppAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	req := whatsappSendRequest{
		MessagingProduct: "whatsapp",
		To:               msg.RecipientID,
		Type:             "text",
	}
	req.Text.Body = msg.Text

	config := httputil.DefaultRequestConfig(
		http.MethodPost,
		fmt.Sprintf("%s/%s/messages", a.config.APIURL, a.config.PhoneNumberID),
	)
	config.Headers = map[string][]string{
		"Authorization": {"Bearer " + a.config.AccessToken},
	}

	if _, err := httputil.Request(ctx, config, req); err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	return nil
}
