package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSBus is a Bus over NATS JetStream, for deployments that already run
// NATS instead of relying on Redis Streams.
type NATSBus struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	stream  string
	subject string
	durable string
	logger  *zap.Logger
}

// NATSBusConfig configures a NATSBus.
type NATSBusConfig struct {
	URL     string
	Stream  string
	Durable string
}

var errNotConnected = errors.New("NATS connection not initialized")

func NewNATSBus(cfg NATSBusConfig, logger *zap.Logger) (*NATSBus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Stream == "" {
		cfg.Stream = "HUB"
	}
	if cfg.Durable == "" {
		cfg.Durable = "hub-workers"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS server: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	bus := &NATSBus{
		nc:      nc,
		js:      js,
		stream:  cfg.Stream,
		subject: cfg.Stream + ".messages",
		durable: cfg.Durable,
		logger:  logger,
	}

	if err := bus.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return bus, nil
}

func (b *NATSBus) ensureStream() error {
	_, err := b.js.StreamInfo(b.stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = b.js.AddStream(&nats.StreamConfig{
		Name:     b.stream,
		Subjects: []string{b.stream + ".>"},
	})
	return err
}

// Publish sends the event to the stream subject.
func (b *NATSBus) Publish(ctx context.Context, event Event) error {
	if b.js == nil {
		return errNotConnected
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := b.js.Publish(b.subject, raw, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Subscribe pulls events via a durable consumer so restarts resume where the
// previous worker stopped.
func (b *NATSBus) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	if b.js == nil {
		return nil, errNotConnected
	}

	sub, err := b.js.PullSubscribe(b.subject, b.durable)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	deliveries := make(chan Delivery, 64)

	go func() {
		defer close(deliveries)
		defer sub.Unsubscribe()

		for {
			if ctx.Err() != nil {
				return
			}

			msgs, err := sub.Fetch(16, nats.Context(ctx))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				b.logger.Warn("fetch failed", zap.Error(err))
				continue
			}

			for _, msg := range msgs {
				var event Event
				if err := json.Unmarshal(msg.Data, &event); err != nil {
					msg.Ack()
					b.logger.Warn("dropping undecodable event", zap.Error(err))
					continue
				}

				m := msg
				delivery := Delivery{
					Event: event,
					Ack: func(context.Context) error {
						return m.Ack()
					},
				}

				select {
				case deliveries <- delivery:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return deliveries, nil
}

func (b *NATSBus) Close() error {
	if b.nc != nil {
		b.nc.Close()
	}
	return nil
}
