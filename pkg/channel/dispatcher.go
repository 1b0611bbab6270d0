package channel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/hub/pkg/creator"
	"github.com/creatorhub/hub/pkg/events"
	"github.com/creatorhub/hub/pkg/metrics"
)

// Responder produces the assistant's answer to an inbound question.
type Responder interface {
	Answer(ctx context.Context, creatorID, conversationID, question string) (string, error)
}

// DocumentIngester embeds a document's content into the knowledge base.
type DocumentIngester interface {
	Ingest(ctx context.Context, creatorID, docID uuid.UUID, text string) error
}

// ClientTracker records end-user activity per creator.
type ClientTracker interface {
	TouchClient(ctx context.Context, creatorID uuid.UUID, channel, externalID, displayName string) (*creator.Client, error)
}

// Dispatcher consumes bus events: inbound messages are answered and sent
// back over the originating channel, added documents are embedded.
type Dispatcher struct {
	registry  *Registry
	responder Responder
	ingester  DocumentIngester
	creators  ClientTracker
	logger    *zap.Logger
}

func NewDispatcher(registry *Registry, responder Responder, ingester DocumentIngester, creators ClientTracker, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, responder: responder, ingester: ingester, creators: creators, logger: logger}
}

// Run processes deliveries until ctx is cancelled. A delivery is acked only
// after the reply was sent or retries were exhausted, so a worker crash
// mid-flight redelivers the message.
func (d *Dispatcher) Run(ctx context.Context, deliveries <-chan events.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			switch delivery.Type {
			case events.TypeMessageReceived:
				d.handleMessage(ctx, delivery)
			case events.TypeDocumentAdded:
				d.handleDocument(ctx, delivery)
			default:
				if err := delivery.Ack(ctx); err != nil {
					d.logger.Warn("ack event", zap.String("event_id", delivery.ID), zap.Error(err))
				}
			}
		}
	}
}

func (d *Dispatcher) handleDocument(ctx context.Context, delivery events.Delivery) {
	var added events.DocumentAdded
	if err := json.Unmarshal(delivery.Payload, &added); err != nil {
		d.logger.Error("decode document event", zap.String("event_id", delivery.ID), zap.Error(err))
		_ = delivery.Ack(ctx)
		return
	}
	if d.ingester == nil {
		d.logger.Warn("document event with no ingester configured", zap.String("event_id", delivery.ID))
		_ = delivery.Ack(ctx)
		return
	}

	// Ingest marks the document failed itself; the ack is unconditional so a
	// poison document does not wedge the stream.
	if err := d.ingester.Ingest(ctx, added.CreatorID, added.DocumentID, added.Content); err != nil {
		d.logger.Error("ingest document",
			zap.String("creator_id", added.CreatorID.String()),
			zap.String("document_id", added.DocumentID.String()),
			zap.Error(err))
	}
	if err := delivery.Ack(ctx); err != nil {
		d.logger.Warn("ack event", zap.String("event_id", delivery.ID), zap.Error(err))
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, delivery events.Delivery) {
	var msg InboundMessage
	if err := json.Unmarshal(delivery.Payload, &msg); err != nil {
		d.logger.Error("decode inbound message", zap.String("event_id", delivery.ID), zap.Error(err))
		_ = delivery.Ack(ctx)
		return
	}

	logger := d.logger.With(
		zap.String("channel", msg.Channel),
		zap.String("creator_id", msg.CreatorID.String()),
		zap.String("conversation_id", msg.ConversationID),
	)

	if _, err := d.creators.TouchClient(ctx, msg.CreatorID, msg.Channel, msg.SenderID, msg.SenderName); err != nil {
		logger.Warn("touch client", zap.Error(err))
	}

	answer, err := d.responder.Answer(ctx, msg.CreatorID.String(), msg.ConversationID, msg.Text)
	if err != nil {
		logger.Error("answer question", zap.Error(err))
		metrics.RepliesSent.WithLabelValues(msg.Channel, "failed").Inc()
		// Leave unacked so the bus redelivers once the model recovers.
		return
	}

	adapter, err := d.registry.Get(msg.Channel)
	if err != nil {
		logger.Error("resolve channel adapter", zap.Error(err))
		_ = delivery.Ack(ctx)
		return
	}

	outbound := OutboundMessage{
		CreatorID:      msg.CreatorID,
		Channel:        msg.Channel,
		RecipientID:    msg.SenderID,
		ConversationID: msg.ConversationID,
		Text:           answer,
	}

	send := func() error { return adapter.Send(ctx, outbound) }
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(send, policy); err != nil {
		logger.Error("send reply", zap.Error(err))
		metrics.RepliesSent.WithLabelValues(msg.Channel, "failed").Inc()
	} else {
		metrics.RepliesSent.WithLabelValues(msg.Channel, "sent").Inc()
		logger.Info("reply sent", zap.Duration("latency", time.Since(msg.ReceivedAt)))
	}

	if err := delivery.Ack(ctx); err != nil {
		logger.Warn("ack event", zap.String("event_id", delivery.ID), zap.Error(err))
	}
}
