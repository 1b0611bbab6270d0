// Package rag implements the retrieval-augmented answer pipeline: Ollama
// embeddings and chat, a pluggable vector store (ChromaDB or pgvector),
// Redis-backed conversation memory and the document ingestion path.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/creatorhub/hub/pkg/httputil"
)

// LLMConfig holds the Ollama connection settings.
type LLMConfig struct {
	APIURL         string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
}

// DefaultLLMConfig returns settings for a local Ollama instance.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		APIURL:         "http://127.0.0.1:11434",
		ChatModel:      "llama3.2:3b",
		EmbeddingModel: "nomic-embed-text",
		Timeout:        60 * time.Second,
	}
}

// LLMClient talks to Ollama's /api/embed and /api/chat endpoints.
type LLMClient struct {
	config LLMConfig
}

func NewLLMClient(config LLMConfig) *LLMClient {
	if config.APIURL == "" {
		config.APIURL = DefaultLLMConfig().APIURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultLLMConfig().Timeout
	}
	return &LLMClient{config: config}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed fetches vector embeddings for the inputs in a single call.
func (c *LLMClient) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("embed input is empty")
	}

	config := httputil.DefaultRequestConfig(http.MethodPost, c.config.APIURL+"/api/embed")
	config.Timeout = c.config.Timeout

	response, err := httputil.Request(ctx, config, embedRequest{
		Model: c.config.EmbeddingModel,
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch embeddings: %w", err)
	}

	var parsed embedResponse
	if err := json.Unmarshal(response.Body, &parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(parsed.Embeddings) != len(input) {
		return nil, fmt.Errorf("embed count mismatch: got %d for %d inputs", len(parsed.Embeddings), len(input))
	}
	return parsed.Embeddings, nil
}

// ChatMessage is one turn in an Ollama chat exchange.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []ChatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message ChatMessage `json:"message"`
}

// Chat runs a non-streaming chat completion and returns the assistant turn.
func (c *LLMClient) Chat(ctx context.Context, messages []ChatMessage, temperature float64) (string, error) {
	config := httputil.DefaultRequestConfig(http.MethodPost, c.config.APIURL+"/api/chat")
	config.Timeout = c.config.Timeout

	response, err := httputil.Request(ctx, config, chatRequest{
		Model:    c.config.ChatModel,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{"temperature": temperature},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(response.Body, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return parsed.Message.Content, nil
}
