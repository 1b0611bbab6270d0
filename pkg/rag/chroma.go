package rag

import (
	"context"
	"fmt"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"
)

// ChromaStore keeps chunks in ChromaDB, one collection per creator. The
// per-collection split keeps tenant isolation structural rather than
// filter-based.
type ChromaStore struct {
	client chromago.Client

	mu          sync.Mutex
	collections map[uuid.UUID]chromago.Collection
}

func NewChromaStore(url string) (*ChromaStore, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(url))
	if err != nil {
		return nil, fmt.Errorf("create chroma client: %w", err)
	}
	return &ChromaStore{
		client:      client,
		collections: make(map[uuid.UUID]chromago.Collection),
	}, nil
}

func (s *ChromaStore) collection(ctx context.Context, creatorID uuid.UUID) (chromago.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[creatorID]; ok {
		return col, nil
	}
	col, err := s.client.GetOrCreateCollection(ctx, "creator-"+creatorID.String())
	if err != nil {
		return nil, fmt.Errorf("get or create collection: %w", err)
	}
	s.collections[creatorID] = col
	return col, nil
}

func (s *ChromaStore) Upsert(ctx context.Context, creatorID uuid.UUID, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	col, err := s.collection(ctx, creatorID)
	if err != nil {
		return err
	}

	for _, chunk := range chunks {
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("document_id", chunk.DocumentID.String()),
			chromago.NewIntAttribute("ordinal", int64(chunk.Ordinal)),
		)
		err := col.Add(ctx,
			chromago.WithIDs(chromago.DocumentID(chunk.ID)),
			chromago.WithTexts(chunk.Content),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(chunk.Embedding)),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return fmt.Errorf("add chunk %s: %w", chunk.ID, err)
		}
	}
	return nil
}

func (s *ChromaStore) Query(ctx context.Context, creatorID uuid.UUID, embedding []float32, topK int) ([]Match, error) {
	col, err := s.collection(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	results, err := col.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(embedding)),
		chromago.WithNResults(topK),
	)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	var matches []Match
	docGroups := results.GetDocumentsGroups()
	metaGroups := results.GetMetadatasGroups()
	distGroups := results.GetDistancesGroups()
	for g, docs := range docGroups {
		for i, doc := range docs {
			match := Match{Content: doc.ContentString()}
			if g < len(distGroups) && i < len(distGroups[g]) {
				match.Distance = float64(distGroups[g][i])
			}
			if g < len(metaGroups) && i < len(metaGroups[g]) && metaGroups[g][i] != nil {
				if raw, ok := metaGroups[g][i].GetString("document_id"); ok {
					if id, err := uuid.Parse(raw); err == nil {
						match.DocumentID = id
					}
				}
			}
			matches = append(matches, match)
		}
	}
	return matches, nil
}

func (s *ChromaStore) DeleteByDocument(ctx context.Context, creatorID, docID uuid.UUID) error {
	col, err := s.collection(ctx, creatorID)
	if err != nil {
		return err
	}
	where := chromago.EqString("document_id", docID.String())
	if err := col.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return fmt.Errorf("delete document chunks: %w", err)
	}
	return nil
}

func (s *ChromaStore) Close() error {
	return s.client.Close()
}
