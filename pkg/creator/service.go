package creator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/hub/pkg/redis"
)

// VectorPurger removes a document's chunks from the vector store. Implemented
// by the RAG store; wired in at startup.
type VectorPurger interface {
	DeleteByDocument(ctx context.Context, creatorID, docID uuid.UUID) error
}

// Service wraps the repository with caching and cross-store cleanup.
type Service struct {
	repo   *Repository
	cache  *redis.Cache
	purger VectorPurger
	logger *zap.Logger
}

func NewService(repo *Repository, cache *redis.Cache, purger VectorPurger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, cache: cache, purger: purger, logger: logger}
}

// Assistant returns assistant settings, cached per creator.
func (s *Service) Assistant(ctx context.Context, creatorID uuid.UUID) (*Assistant, error) {
	cacheKey := "assistant:" + creatorID.String()
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey); err == nil {
			assistant := &Assistant{}
			if err := json.Unmarshal(raw, assistant); err == nil {
				return assistant, nil
			}
		}
	}

	assistant, err := s.repo.GetAssistant(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(assistant); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw); err != nil {
				s.logger.Warn("assistant cache write failed", zap.Error(err))
			}
		}
	}
	return assistant, nil
}

// UpdateAssistant validates, persists and invalidates the cached settings.
func (s *Service) UpdateAssistant(ctx context.Context, a *Assistant) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpsertAssistant(ctx, a); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, "assistant:"+a.CreatorID.String()); err != nil {
			s.logger.Warn("assistant cache invalidation failed", zap.Error(err))
		}
	}
	return nil
}

// Clients lists the creator's clients.
func (s *Service) Clients(ctx context.Context, creatorID uuid.UUID) ([]Client, error) {
	return s.repo.ListClients(ctx, creatorID)
}

// TouchClient upserts a client on inbound contact.
func (s *Service) TouchClient(ctx context.Context, creatorID uuid.UUID, channel, externalID, displayName string) (*Client, error) {
	return s.repo.UpsertClient(ctx, creatorID, channel, externalID, displayName)
}

// RemoveClient deletes a client record.
func (s *Service) RemoveClient(ctx context.Context, creatorID, clientID uuid.UUID) error {
	return s.repo.DeleteClient(ctx, creatorID, clientID)
}

// AddDocument registers a new knowledge-base document (pending until the
// ingestor has embedded it).
func (s *Service) AddDocument(ctx context.Context, creatorID uuid.UUID, title, source string) (*Document, error) {
	if title == "" {
		return nil, fmt.Errorf("document title required")
	}
	return s.repo.CreateDocument(ctx, creatorID, title, source)
}

// Documents lists the creator's documents.
func (s *Service) Documents(ctx context.Context, creatorID uuid.UUID) ([]Document, error) {
	return s.repo.ListDocuments(ctx, creatorID)
}

// MarkDocument records ingestion outcome for a document.
func (s *Service) MarkDocument(ctx context.Context, creatorID, docID uuid.UUID, status string, chunkCount int) error {
	return s.repo.SetDocumentStatus(ctx, creatorID, docID, status, chunkCount)
}

// RemoveDocument deletes metadata and purges the document's chunks from the
// vector store. The vector purge runs first: losing metadata for purged
// chunks is recoverable, orphaned chunks in retrieval are not.
func (s *Service) RemoveDocument(ctx context.Context, creatorID, docID uuid.UUID) error {
	if s.purger != nil {
		if err := s.purger.DeleteByDocument(ctx, creatorID, docID); err != nil {
			return fmt.Errorf("purge document chunks: %w", err)
		}
	}
	return s.repo.DeleteDocument(ctx, creatorID, docID)
}
