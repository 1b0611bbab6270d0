package rag

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/creatorhub/hub/pkg/creator"
	"github.com/creatorhub/hub/pkg/metrics"
)

const embedBatchSize = 16

// DocumentMarker updates document status after ingestion. Satisfied by
// creator.Service.
type DocumentMarker interface {
	MarkDocument(ctx context.Context, creatorID, docID uuid.UUID, status string, chunkCount int) error
}

// Ingestor chunks document text, embeds the chunks on a worker pool and
// writes them to the vector store.
type Ingestor struct {
	llm     *LLMClient
	store   VectorStore
	chunker *Chunker
	docs    DocumentMarker
	pool    *ants.Pool
	logger  *zap.Logger
}

func NewIngestor(llm *LLMClient, store VectorStore, chunker *Chunker, docs DocumentMarker, logger *zap.Logger) (*Ingestor, error) {
	size := runtime.NumCPU() / 2
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	return &Ingestor{
		llm:     llm,
		store:   store,
		chunker: chunker,
		docs:    docs,
		pool:    pool,
		logger:  logger,
	}, nil
}

// Release shuts the worker pool down. In-flight batches finish first.
func (in *Ingestor) Release() {
	in.pool.Release()
}

// Ingest processes one document: split, embed batches concurrently, upsert,
// then mark the document ready. Any failure marks it failed so the creator
// sees the state instead of a silently missing document.
func (in *Ingestor) Ingest(ctx context.Context, creatorID, docID uuid.UUID, text string) error {
	logger := in.logger.With(
		zap.String("creator_id", creatorID.String()),
		zap.String("document_id", docID.String()),
	)

	chunks, err := in.ingest(ctx, creatorID, docID, text)
	if err != nil {
		metrics.DocumentsIngested.WithLabelValues("failed").Inc()
		logger.Error("ingest document", zap.Error(err))
		if markErr := in.docs.MarkDocument(ctx, creatorID, docID, creator.DocumentFailed, 0); markErr != nil {
			logger.Error("mark document failed", zap.Error(markErr))
		}
		return err
	}

	if err := in.docs.MarkDocument(ctx, creatorID, docID, creator.DocumentReady, chunks); err != nil {
		logger.Error("mark document ready", zap.Error(err))
		return err
	}
	metrics.DocumentsIngested.WithLabelValues("ready").Inc()
	logger.Info("document ingested", zap.Int("chunks", chunks))
	return nil
}

func (in *Ingestor) ingest(ctx context.Context, creatorID, docID uuid.UUID, text string) (int, error) {
	pieces, err := in.chunker.Split(text)
	if err != nil {
		return 0, err
	}
	if len(pieces) == 0 {
		return 0, fmt.Errorf("document has no content")
	}

	chunks := make([]Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = Chunk{
			ID:         fmt.Sprintf("%s-chunk%d", docID, i),
			DocumentID: docID,
			Content:    piece,
			Ordinal:    i,
		}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		wg.Add(1)
		submitErr := in.pool.Submit(func() {
			defer wg.Done()

			inputs := make([]string, len(batch))
			for i, chunk := range batch {
				inputs[i] = chunk.Content
			}
			vectors, err := in.llm.Embed(ctx, inputs)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
		})
		if submitErr != nil {
			wg.Done()
			return 0, fmt.Errorf("submit embed batch: %w", submitErr)
		}
	}
	wg.Wait()
	if firstErr != nil {
		return 0, fmt.Errorf("embed chunks: %w", firstErr)
	}

	if err := in.store.Upsert(ctx, creatorID, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}
