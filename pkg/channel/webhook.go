package channel

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/creatorhub/hub/pkg/events"
	"github.com/creatorhub/hub/pkg/httputil"
	"github.com/creatorhub/hub/pkg/metrics"
	hubredis "github.com/creatorhub/hub/pkg/redis"
)

const (
	maxWebhookBody = 1 << 20
	dedupTTL       = 24 * time.Hour
)

// Deduper remembers provider message IDs so redelivered webhooks are dropped.
type Deduper interface {
	// FirstSeen returns true the first time key is observed within ttl.
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDeduper implements Deduper on a shared Redis instance, so dedup holds
// across API server replicas.
type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return hubredis.SetNX(ctx, d.client, key, ttl)
}

// WebhookHandler receives provider callbacks, deduplicates them and hands
// them to the event bus. Providers get a 200 as soon as the event is queued;
// replies are produced asynchronously by the worker.
type WebhookHandler struct {
	registry *Registry
	bus      events.Bus
	dedup    Deduper
	logger   *zap.Logger
}

func NewWebhookHandler(registry *Registry, bus events.Bus, dedup Deduper, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{registry: registry, bus: bus, dedup: dedup, logger: logger}
}

// Register mounts the webhook endpoints on the router.
func (h *WebhookHandler) Register(r *httputil.Router) {
	r.HandleFunc("POST /webhooks/{channel}/{creatorID}", h.Receive)
	r.HandleFunc("GET /webhooks/{channel}/{creatorID}", h.Verify)
}

// Verify handles provider subscription handshakes (e.g. Meta's hub.challenge).
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	adapter, err := h.registry.Get(r.PathValue("channel"))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "unknown channel")
		return
	}
	if verifier, ok := adapter.(Verifier); ok && verifier.HandleVerification(w, r) {
		return
	}
	httputil.Error(w, http.StatusMethodNotAllowed, "verification not supported")
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("channel")
	adapter, err := h.registry.Get(name)
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "unknown channel")
		return
	}

	creatorID, err := uuid.Parse(r.PathValue("creatorID"))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "unknown creator")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "read body")
		return
	}

	messages, err := adapter.Parse(creatorID, body)
	if errors.Is(err, ErrIgnoredUpdate) {
		metrics.WebhookEvents.WithLabelValues(name, "ignored").Inc()
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	} else if err != nil {
		metrics.WebhookEvents.WithLabelValues(name, "malformed").Inc()
		httputil.Error(w, http.StatusBadRequest, "malformed payload")
		return
	}
	if len(messages) == 0 {
		// Delivery receipts and other non-message callbacks.
		metrics.WebhookEvents.WithLabelValues(name, "ignored").Inc()
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	accepted := 0
	for _, msg := range messages {
		fresh, err := h.dedup.FirstSeen(r.Context(), "webhook:seen:"+name+":"+msg.ProviderMessageID, dedupTTL)
		if err != nil {
			h.logger.Warn("webhook dedup check failed", zap.String("channel", name), zap.Error(err))
		} else if !fresh {
			metrics.WebhookEvents.WithLabelValues(name, "duplicate").Inc()
			continue
		}

		event, err := events.NewEvent(events.TypeMessageReceived, msg)
		if err != nil {
			h.logger.Error("encode inbound message", zap.Error(err))
			continue
		}
		if err := h.bus.Publish(r.Context(), event); err != nil {
			h.logger.Error("publish inbound message",
				zap.String("channel", name),
				zap.String("creator_id", creatorID.String()),
				zap.Error(err))
			httputil.Error(w, http.StatusInternalServerError, "queue message")
			return
		}
		metrics.WebhookEvents.WithLabelValues(name, "accepted").Inc()
		accepted++
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"status": "ok", "accepted": accepted})
}
