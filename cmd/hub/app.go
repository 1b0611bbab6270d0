package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/creatorhub/hub/pkg/auth"
	"github.com/creatorhub/hub/pkg/channel"
	"github.com/creatorhub/hub/pkg/config"
	"github.com/creatorhub/hub/pkg/creator"
	"github.com/creatorhub/hub/pkg/events"
	hubpgx "github.com/creatorhub/hub/pkg/pgx"
	"github.com/creatorhub/hub/pkg/rag"
	hubredis "github.com/creatorhub/hub/pkg/redis"
)

// app holds the wiring shared by the serve, worker and ingest commands.
type app struct {
	logger   *zap.Logger
	pools    *hubpgx.PoolManager
	pool     *pgxpool.Pool
	rdb      *redis.Client
	bus      events.Bus
	store    rag.VectorStore
	engine   *rag.Engine
	ingestor *rag.Ingestor
	creators *creator.Service
	auth     *auth.Service
	registry *channel.Registry
	widget   *channel.WidgetAdapter
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	if cfg.Postgres.ConnString == "" {
		return nil, fmt.Errorf("postgres connection string required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth JWT secret required")
	}

	a := &app{logger: logger}

	a.pools = hubpgx.NewPoolManager()
	if err := a.pools.Add(ctx, hubpgx.Pool{Name: "main", ConnString: cfg.Postgres.ConnString}, true); err != nil {
		return nil, err
	}
	pool, err := a.pools.Active()
	if err != nil {
		return nil, err
	}
	a.pool = pool

	a.rdb, err = hubredis.Connect(ctx, hubredis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	switch cfg.Events.Bus {
	case "nats":
		a.bus, err = events.NewNATSBus(events.NATSBusConfig{
			URL:     cfg.Events.NATSURL,
			Stream:  cfg.Events.Stream,
			Durable: cfg.Events.Group,
		}, logger)
	default:
		consumer, _ := os.Hostname()
		a.bus, err = events.NewRedisBus(a.rdb, events.RedisBusConfig{
			Stream:   cfg.Events.Stream,
			Group:    cfg.Events.Group,
			Consumer: consumer,
		}, logger)
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create event bus: %w", err)
	}

	llm := rag.NewLLMClient(rag.LLMConfig{
		APIURL:         cfg.AI.OllamaURL,
		ChatModel:      cfg.AI.ChatModel,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		Timeout:        cfg.AI.Timeout,
	})

	switch cfg.AI.VectorStore {
	case "pgvector":
		a.store = rag.NewPgVectorStore(pool)
	default:
		a.store, err = rag.NewChromaStore(cfg.AI.ChromaURL)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	repo := creator.NewRepository(pool)
	assistantCache := hubredis.NewCache(a.rdb, "assistant", cfg.AI.CacheTTL)
	a.creators = creator.NewService(repo, assistantCache, a.store, logger)

	memory := rag.NewMemory(a.rdb, cfg.AI.MemoryWindow, 0)
	answerCache := hubredis.NewCache(a.rdb, "answers", cfg.AI.CacheTTL)
	a.engine = rag.NewEngine(llm, a.store, memory, a.creators, answerCache, cfg.AI.TopK, logger)

	a.ingestor, err = rag.NewIngestor(llm, a.store, rag.NewChunker(0, 0), a.creators, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	sessions := auth.NewSessionStore(a.rdb, cfg.Auth.RefreshTokenTTL)
	a.auth = auth.NewService(auth.NewPgAccountStore(pool), tokens, sessions, logger)

	a.registry = channel.NewRegistry()
	if err := a.registry.Register(channel.NewWhatsAppAdapter(), cfg.Channels.WhatsApp); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.registry.Register(channel.NewTelegramAdapter(), cfg.Channels.Telegram); err != nil {
		a.Close()
		return nil, err
	}
	a.widget = channel.NewWidgetAdapter(a.rdb)
	if err := a.registry.Register(a.widget, cfg.Channels.Widget); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *app) Close() {
	if a.ingestor != nil {
		a.ingestor.Release()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if closer, ok := a.store.(interface{ Close() error }); ok {
		closer.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.pools != nil {
		a.pools.Close()
	}
}
