package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestTelegramParse(t *testing.T) {
	creatorID := uuid.New()
	adapter := NewTelegramAdapter()
	if err := adapter.Configure(nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		body    string
		wantErr error
		check   func(t *testing.T, msgs []InboundMessage)
	}{
		{
			name: "text message",
			body: `{
				"update_id": 10000,
				"message": {
					"message_id": 1365,
					"from": {"id": 1111, "first_name": "Ada", "last_name": "Lovelace", "username": "ada"},
					"chat": {"id": 1111},
					"text": "how do I start?"
				}
			}`,
			check: func(t *testing.T, msgs []InboundMessage) {
				if len(msgs) != 1 {
					t.Fatalf("expected 1 message, got %d", len(msgs))
				}
				msg := msgs[0]
				if msg.CreatorID != creatorID {
					t.Errorf("creator ID %s, want %s", msg.CreatorID, creatorID)
				}
				if msg.Channel != Telegram {
					t.Errorf("channel %q, want %q", msg.Channel, Telegram)
				}
				if msg.SenderID != "1111" || msg.SenderName != "Ada Lovelace" {
					t.Errorf("sender %q/%q", msg.SenderID, msg.SenderName)
				}
				if msg.ConversationID != "1111" {
					t.Errorf("conversation %q", msg.ConversationID)
				}
				if msg.ProviderMessageID != "1111:1365" {
					t.Errorf("provider message ID %q", msg.ProviderMessageID)
				}
				if msg.Text != "how do I start?" {
					t.Errorf("text %q", msg.Text)
				}
			},
		},
		{
			name: "username fallback",
			body: `{
				"update_id": 10001,
				"message": {
					"message_id": 1,
					"from": {"id": 2, "username": "anon"},
					"chat": {"id": 2},
					"text": "hi"
				}
			}`,
			check: func(t *testing.T, msgs []InboundMessage) {
				if msgs[0].SenderName != "anon" {
					t.Errorf("sender name %q, want anon", msgs[0].SenderName)
				}
			},
		},
		{
			name:    "callback query without message",
			body:    `{"update_id": 10002, "callback_query": {"id": "x"}}`,
			wantErr: ErrIgnoredUpdate,
		},
		{
			name:    "sticker without text",
			body:    `{"update_id": 10003, "message": {"message_id": 2, "chat": {"id": 3}, "text": ""}}`,
			wantErr: ErrIgnoredUpdate,
		},
		{
			name:    "malformed body",
			body:    `{"update_id": `,
			wantErr: errors.New("decode telegram update"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := adapter.Parse(creatorID, []byte(tt.body))
			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if errors.Is(tt.wantErr, ErrIgnoredUpdate) && !errors.Is(err, ErrIgnoredUpdate) {
					t.Fatalf("expected ErrIgnoredUpdate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, msgs)
		})
	}
}

func TestTelegramSend(t *testing.T) {
	var gotPath string
	var gotBody telegramSendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Error(err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewTelegramAdapter()
	if err := adapter.Configure(map[string]any{"botToken": "123:abc", "apiURL": server.URL}); err != nil {
		t.Fatal(err)
	}

	err := adapter.Send(context.Background(), OutboundMessage{
		ConversationID: "4242",
		Text:           "here is your plan",
	})
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("path %q", gotPath)
	}
	if gotBody.ChatID != "4242" || gotBody.Text != "here is your plan" {
		t.Errorf("body %+v", gotBody)
	}
}
