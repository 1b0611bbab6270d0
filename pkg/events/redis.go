package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus is a Bus over a Redis Stream with a consumer group. Unacked
// entries are reclaimed after claimIdle via XAUTOCLAIM, so a crashed worker's
// messages end up with a live one.
type RedisBus struct {
	client    *redis.Client
	stream    string
	group     string
	consumer  string
	logger    *zap.Logger
	claimIdle time.Duration
}

// RedisBusConfig configures a RedisBus.
type RedisBusConfig struct {
	Stream   string
	Group    string
	Consumer string
}

const (
	defaultStream    = "hub:messages"
	defaultGroup     = "hub-workers"
	defaultClaimIdle = time.Minute
	readBlock        = 5 * time.Second
	maxStreamLen     = 100000
)

func NewRedisBus(client *redis.Client, cfg RedisBusConfig, logger *zap.Logger) (*RedisBus, error) {
	if cfg.Stream == "" {
		cfg.Stream = defaultStream
	}
	if cfg.Group == "" {
		cfg.Group = defaultGroup
	}
	if cfg.Consumer == "" {
		cfg.Consumer = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bus := &RedisBus{
		client:    client,
		stream:    cfg.Stream,
		group:     cfg.Group,
		consumer:  cfg.Consumer,
		logger:    logger,
		claimIdle: defaultClaimIdle,
	}

	// BUSYGROUP means the group already exists, which is fine.
	err := client.XGroupCreateMkStream(context.Background(), bus.stream, bus.group, "$").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return bus, nil
}

// Publish appends the event to the stream, trimming it to a bounded length.
func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{"event": raw},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}

	b.logger.Debug("event published",
		zap.String("stream", b.stream),
		zap.String("id", id),
		zap.String("type", event.Type))
	return nil
}

// Subscribe consumes the stream as part of the consumer group.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	deliveries := make(chan Delivery, 64)

	go func() {
		defer close(deliveries)
		for {
			if ctx.Err() != nil {
				return
			}

			b.reclaim(ctx, deliveries)

			streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    b.group,
				Consumer: b.consumer,
				Streams:  []string{b.stream, ">"},
				Count:    16,
				Block:    readBlock,
			}).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				b.logger.Warn("xreadgroup failed", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			for _, stream := range streams {
				for _, msg := range stream.Messages {
					b.deliver(ctx, deliveries, msg)
				}
			}
		}
	}()

	return deliveries, nil
}

func (b *RedisBus) deliver(ctx context.Context, deliveries chan<- Delivery, msg redis.XMessage) {
	raw, ok := msg.Values["event"].(string)
	if !ok {
		// Malformed entry; ack so it doesn't loop forever.
		b.client.XAck(ctx, b.stream, b.group, msg.ID)
		b.logger.Warn("dropping malformed stream entry", zap.String("id", msg.ID))
		return
	}

	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		b.client.XAck(ctx, b.stream, b.group, msg.ID)
		b.logger.Warn("dropping undecodable event", zap.String("id", msg.ID), zap.Error(err))
		return
	}
	event.ID = msg.ID

	msgID := msg.ID
	delivery := Delivery{
		Event: event,
		Ack: func(ctx context.Context) error {
			return b.client.XAck(ctx, b.stream, b.group, msgID).Err()
		},
	}

	select {
	case deliveries <- delivery:
	case <-ctx.Done():
	}
}

// reclaim picks up entries left pending by dead consumers.
func (b *RedisBus) reclaim(ctx context.Context, deliveries chan<- Delivery) {
	msgs, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   b.stream,
		Group:    b.group,
		Consumer: b.consumer,
		MinIdle:  b.claimIdle,
		Start:    "0",
		Count:    16,
	}).Result()
	if err != nil && err != redis.Nil {
		if ctx.Err() == nil {
			b.logger.Debug("xautoclaim failed", zap.Error(err))
		}
		return
	}
	for _, msg := range msgs {
		b.deliver(ctx, deliveries, msg)
	}
}

func (b *RedisBus) Close() error {
	return nil // client lifecycle is owned by the caller
}
