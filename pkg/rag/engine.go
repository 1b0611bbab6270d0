package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/creatorhub/hub/pkg/creator"
	"github.com/creatorhub/hub/pkg/metrics"
	"github.com/creatorhub/hub/pkg/redis"
)

// AssistantSource supplies the persona and model settings for a creator.
// Satisfied by creator.Service.
type AssistantSource interface {
	Assistant(ctx context.Context, creatorID uuid.UUID) (*creator.Assistant, error)
}

// ConversationMemory is the sliding-window history store. Satisfied by Memory.
type ConversationMemory interface {
	Recent(ctx context.Context, creatorID, conversationID string) ([]Turn, error)
	Append(ctx context.Context, creatorID, conversationID string, turns ...Turn) error
}

// AnswerCache stores full answers keyed by question. Satisfied by redis.Cache.
type AnswerCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Engine runs the full answer pipeline: embed the question, retrieve
// similar chunks, assemble the prompt with persona and conversation memory,
// and run the chat completion.
type Engine struct {
	llm        *LLMClient
	store      VectorStore
	memory     ConversationMemory
	assistants AssistantSource
	cache      AnswerCache
	topK       int
	logger     *zap.Logger
}

func NewEngine(llm *LLMClient, store VectorStore, memory ConversationMemory, assistants AssistantSource, cache AnswerCache, topK int, logger *zap.Logger) *Engine {
	if topK <= 0 {
		topK = 4
	}
	return &Engine{
		llm:        llm,
		store:      store,
		memory:     memory,
		assistants: assistants,
		cache:      cache,
		topK:       topK,
		logger:     logger,
	}
}

func answerCacheKey(creatorID, question string) string {
	sum := sha256.Sum256([]byte(question))
	return creatorID + ":" + hex.EncodeToString(sum[:])
}

// Answer produces the assistant's reply to a question in a conversation.
// Identical questions within a creator are served from cache, but only for
// conversations with no history, where memory cannot change the answer.
func (e *Engine) Answer(ctx context.Context, creatorID, conversationID, question string) (string, error) {
	cid, err := uuid.Parse(creatorID)
	if err != nil {
		return "", fmt.Errorf("parse creator id: %w", err)
	}

	var history []Turn
	if e.memory != nil {
		history, err = e.memory.Recent(ctx, creatorID, conversationID)
		if err != nil {
			e.logger.Warn("read conversation memory", zap.Error(err))
			history = nil
		}
	}

	cacheKey := answerCacheKey(creatorID, question)
	if e.cache != nil && len(history) == 0 {
		if cached, err := e.cache.Get(ctx, cacheKey); err == nil {
			// The exchange still happened in this conversation; record it
			// so follow-up turns carry the context.
			e.remember(ctx, creatorID, conversationID, question, string(cached))
			return string(cached), nil
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			e.logger.Warn("answer cache read", zap.Error(err))
		}
	}

	assistant, err := e.assistants.Assistant(ctx, cid)
	if err != nil {
		return "", fmt.Errorf("load assistant: %w", err)
	}

	timer := prometheus.NewTimer(metrics.RAGStageDuration.WithLabelValues("embed"))
	vectors, err := e.llm.Embed(ctx, []string{question})
	timer.ObserveDuration()
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}

	timer = prometheus.NewTimer(metrics.RAGStageDuration.WithLabelValues("retrieve"))
	matches, err := e.store.Query(ctx, cid, vectors[0], e.topK)
	timer.ObserveDuration()
	if err != nil {
		// Retrieval failure degrades to a persona-only answer rather than
		// dropping the conversation.
		e.logger.Warn("retrieve chunks", zap.String("creator_id", creatorID), zap.Error(err))
		matches = nil
	}

	messages := BuildMessages(assistant.Persona, matches, history, question)

	timer = prometheus.NewTimer(metrics.RAGStageDuration.WithLabelValues("generate"))
	answer, err := e.llm.Chat(ctx, messages, assistant.Temperature)
	timer.ObserveDuration()
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	e.remember(ctx, creatorID, conversationID, question, answer)

	if e.cache != nil && len(history) == 0 {
		if err := e.cache.Set(ctx, cacheKey, []byte(answer)); err != nil {
			e.logger.Warn("answer cache write", zap.Error(err))
		}
	}

	return answer, nil
}

func (e *Engine) remember(ctx context.Context, creatorID, conversationID, question, answer string) {
	if e.memory == nil {
		return
	}
	err := e.memory.Append(ctx, creatorID, conversationID,
		Turn{Role: "user", Content: question},
		Turn{Role: "assistant", Content: answer},
	)
	if err != nil {
		e.logger.Warn("append conversation memory", zap.Error(err))
	}
}

// Greeting returns the assistant's configured greeting for new widget
// conversations.
func (e *Engine) Greeting(ctx context.Context, creatorID uuid.UUID) (string, error) {
	assistant, err := e.assistants.Assistant(ctx, creatorID)
	if err != nil {
		return "", err
	}
	return assistant.Greeting, nil
}
