package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/creatorhub/hub/pkg/httputil"
)

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	BotToken string `mapstructure:"botToken"`
	APIURL   string `mapstructure:"apiURL"`
}

// TelegramAdapter speaks the Telegram Bot API webhook and sendMessage formats.
type TelegramAdapter struct {
	config TelegramConfig
}

func NewTelegramAdapter() *TelegramAdapter {
	return &TelegramAdapter{}
}

func (a *TelegramAdapter) Name() string { return Telegram }

func (a *TelegramAdapter) Configure(config map[string]any) error {
	a.config = TelegramConfig{APIURL: "https://api.telegram.org"}
	return decodeConfig(config, &a.config)
}

type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		From      struct {
			ID        int64  `json:"id"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Username  string `json:"username"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

func (a *TelegramAdapter) Parse(creatorID uuid.UUID, body []byte) ([]InboundMessage, error) {
	var update telegramUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, fmt.Errorf("decode telegram update: %w", err)
	}

	// Edited messages, callbacks, channel posts and the like carry no
	// message field and are ignored.
	if update.Message == nil || update.Message.Text == "" {
		return nil, ErrIgnoredUpdate
	}

	name := update.Message.From.FirstName
	if update.Message.From.LastName != "" {
		name += " " + update.Message.From.LastName
	}
	if name == "" {
		name = update.Message.From.Username
	}

	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	return []InboundMessage{{
		CreatorID:         creatorID,
		Channel:           Telegram,
		SenderID:          strconv.FormatInt(update.Message.From.ID, 10),
		SenderName:        name,
		ConversationID:    chatID,
		ProviderMessageID: fmt.Sprintf("%d:%d", update.Message.Chat.ID, update.Message.MessageID),
		Text:              update.Message.Text,
		ReceivedAt:        time.Now().UTC(),
	}}, nil
}

type telegramSendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (a *TelegramAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	config := httputil.DefaultRequestConfig(
		http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendMessage", a.config.APIURL, a.config.BotToken),
	)
	req := telegramSendRequest{ChatID: msg.ConversationID, Text: msg.Text}
	if _, err := httputil.Request(ctx, config, req); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
