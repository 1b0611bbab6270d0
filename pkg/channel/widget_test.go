package channel

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestWidgetParse(t *testing.T) {
	creatorID := uuid.New()
	adapter := NewWidgetAdapter(nil)
	if err := adapter.Configure(nil); err != nil {
		t.Fatal(err)
	}

	t.Run("full message", func(t *testing.T) {
		body := `{
			"messageId": "m-1",
			"conversationId": "c-1",
			"visitorId": "v-1",
			"visitorName": "Visitor",
			"text": "is there a free trial?"
		}`
		msgs, err := adapter.Parse(creatorID, []byte(body))
		if err != nil {
			t.Fatal(err)
		}
		if len(msgs) != 1 {
			t.Fatalf("expected 1 message, got %d", len(msgs))
		}
		msg := msgs[0]
		if msg.Channel != Widget || msg.CreatorID != creatorID {
			t.Errorf("channel %q creator %s", msg.Channel, msg.CreatorID)
		}
		if msg.SenderID != "v-1" || msg.ConversationID != "c-1" || msg.ProviderMessageID != "m-1" {
			t.Errorf("ids %q/%q/%q", msg.SenderID, msg.ConversationID, msg.ProviderMessageID)
		}
	})

	t.Run("visitor defaults to conversation", func(t *testing.T) {
		msgs, err := adapter.Parse(creatorID, []byte(`{"conversationId": "c-2", "text": "hi"}`))
		if err != nil {
			t.Fatal(err)
		}
		if msgs[0].SenderID != "c-2" {
			t.Errorf("sender %q, want c-2", msgs[0].SenderID)
		}
		if msgs[0].ProviderMessageID == "" {
			t.Error("expected generated message ID")
		}
	})

	t.Run("empty text ignored", func(t *testing.T) {
		_, err := adapter.Parse(creatorID, []byte(`{"conversationId": "c-3", "text": ""}`))
		if !errors.Is(err, ErrIgnoredUpdate) {
			t.Errorf("expected ErrIgnoredUpdate, got %v", err)
		}
	})

	t.Run("missing conversation ignored", func(t *testing.T) {
		_, err := adapter.Parse(creatorID, []byte(`{"text": "hi"}`))
		if !errors.Is(err, ErrIgnoredUpdate) {
			t.Errorf("expected ErrIgnoredUpdate, got %v", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		if _, err := adapter.Parse(creatorID, []byte(`not json`)); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("TEST_REDIS") == "" {
		t.Skip("TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: os.Getenv("TEST_REDIS")})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestWidgetPollDrainsWithoutLosingReplies(t *testing.T) {
	client := testRedis(t)
	adapter := NewWidgetAdapter(client)
	if err := adapter.Configure(nil); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	creatorID := uuid.New()
	conversationID := uuid.NewString()
	send := func(text string) {
		t.Helper()
		err := adapter.Send(ctx, OutboundMessage{
			CreatorID:      creatorID,
			Channel:        Widget,
			ConversationID: conversationID,
			Text:           text,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	send("first")
	send("second")
	send("third")

	replies, err := adapter.PollReplies(ctx, creatorID, conversationID, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(replies) != 3 {
		t.Fatalf("drained %d replies, want 3", len(replies))
	}
	for i, want := range []string{"first", "second", "third"} {
		if replies[i].Text != want {
			t.Errorf("reply %d text %q, want %q", i, replies[i].Text, want)
		}
	}

	// A reply queued after a drain must survive to the next poll.
	send("late")
	replies, err = adapter.PollReplies(ctx, creatorID, conversationID, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(replies) != 1 || replies[0].Text != "late" {
		t.Fatalf("next poll got %v, want the late reply", replies)
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(NewTelegramAdapter(), map[string]any{"botToken": "t"}); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(NewWhatsAppAdapter(), nil); err != nil {
		t.Fatal(err)
	}

	adapter, err := registry.Get(Telegram)
	if err != nil {
		t.Fatal(err)
	}
	if adapter.Name() != Telegram {
		t.Errorf("name %q", adapter.Name())
	}

	if _, err := registry.Get("smoke-signal"); !errors.Is(err, ErrAdapterNotFound) {
		t.Errorf("expected ErrAdapterNotFound, got %v", err)
	}

	if names := registry.List(); len(names) != 2 {
		t.Errorf("expected 2 channels, got %v", names)
	}
}
