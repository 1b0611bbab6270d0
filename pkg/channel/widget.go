package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// WidgetConfig holds web widget settings.
type WidgetConfig struct {
	ReplyTTL time.Duration `mapstructure:"replyTTL"`
}

// WidgetAdapter serves the embeddable web chat widget. Inbound messages
// arrive as first-party JSON; replies are parked in a Redis list the widget
// polls with PollReplies.
type WidgetAdapter struct {
	config WidgetConfig
	client *redis.Client
}

func NewWidgetAdapter(client *redis.Client) *WidgetAdapter {
	return &WidgetAdapter{client: client}
}

func (a *WidgetAdapter) Name() string { return Widget }

func (a *WidgetAdapter) Configure(config map[string]any) error {
	a.config = WidgetConfig{ReplyTTL: 10 * time.Minute}
	return decodeConfig(config, &a.config)
}

type widgetMessage struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	VisitorID      string `json:"visitorId"`
	VisitorName    string `json:"visitorName"`
	Text           string `json:"text"`
}

func (a *WidgetAdapter) Parse(creatorID uuid.UUID, body []byte) ([]InboundMessage, error) {
	var msg widgetMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("decode widget message: %w", err)
	}
	if msg.Text == "" || msg.ConversationID == "" {
		return nil, ErrIgnoredUpdate
	}
	if msg.VisitorID == "" {
		msg.VisitorID = msg.ConversationID
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	return []InboundMessage{{
		CreatorID:         creatorID,
		Channel:           Widget,
		SenderID:          msg.VisitorID,
		SenderName:        msg.VisitorName,
		ConversationID:    msg.ConversationID,
		ProviderMessageID: msg.MessageID,
		Text:              msg.Text,
		ReceivedAt:        time.Now().UTC(),
	}}, nil
}

func (a *WidgetAdapter) replyKey(creatorID uuid.UUID, conversationID string) string {
	return fmt.Sprintf("widget:out:%s:%s", creatorID, conversationID)
}

// WidgetReply is what the widget polls for.
type WidgetReply struct {
	ConversationID string    `json:"conversationId"`
	Text           string    `json:"text"`
	At             time.Time `json:"at"`
}

func (a *WidgetAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	reply := WidgetReply{
		ConversationID: msg.ConversationID,
		Text:           msg.Text,
		At:             time.Now().UTC(),
	}
	b, err := json.Marshal(reply)
	if err != nil {
		return err
	}

	key := a.replyKey(msg.CreatorID, msg.ConversationID)
	pipe := a.client.TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.Expire(ctx, key, a.config.ReplyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("widget send: %w", err)
	}
	return nil
}

// PollReplies drains queued replies for a conversation, blocking up to wait
// for the first one.
func (a *WidgetAdapter) PollReplies(ctx context.Context, creatorID uuid.UUID, conversationID string, wait time.Duration) ([]WidgetReply, error) {
	key := a.replyKey(creatorID, conversationID)

	first, err := a.client.BLPop(ctx, wait, key).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	// Drain with LPop so a reply pushed mid-poll stays queued for the
	// next poll instead of being deleted unread.
	raw := []string{first[1]}
	var drainErr error
	for {
		item, err := a.client.LPop(ctx, key).Result()
		if err == redis.Nil {
			break
		} else if err != nil {
			// Already-popped replies are gone from the list; hand
			// them over rather than dropping them.
			drainErr = err
			break
		}
		raw = append(raw, item)
	}

	replies := make([]WidgetReply, 0, len(raw))
	for _, item := range raw {
		var reply WidgetReply
		if err := json.Unmarshal([]byte(item), &reply); err != nil {
			continue
		}
		replies = append(replies, reply)
	}
	return replies, drainErr
}
