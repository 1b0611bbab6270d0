package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	hubpgx "github.com/creatorhub/hub/pkg/pgx"
)

// PgVectorStore keeps chunks in a pgvector-backed table. The rag_chunks
// table carries the same RLS policy as the rest of the schema, so queries
// running inside WithTenant can only see the creator's own chunks.
type PgVectorStore struct {
	pool *pgxpool.Pool
}

func NewPgVectorStore(pool *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{pool: pool}
}

func (s *PgVectorStore) Upsert(ctx context.Context, creatorID uuid.UUID, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return hubpgx.WithTenant(ctx, s.pool, creatorID, func(tx pgx.Tx) error {
		for _, chunk := range chunks {
			_, err := tx.Exec(ctx, `
				INSERT INTO rag_chunks (id, creator_id, document_id, ordinal, content, embedding)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
				chunk.ID, creatorID, chunk.DocumentID, chunk.Ordinal, chunk.Content,
				pgvector.NewVector(chunk.Embedding))
			if err != nil {
				return fmt.Errorf("upsert chunk %s: %w", chunk.ID, err)
			}
		}
		return nil
	})
}

func (s *PgVectorStore) Query(ctx context.Context, creatorID uuid.UUID, embedding []float32, topK int) ([]Match, error) {
	var matches []Match
	err := hubpgx.WithTenant(ctx, s.pool, creatorID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT content, document_id, embedding <=> $1 AS distance
			FROM rag_chunks
			ORDER BY embedding <=> $1
			LIMIT $2`,
			pgvector.NewVector(embedding), topK)
		if err != nil {
			return fmt.Errorf("query chunks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var match Match
			if err := rows.Scan(&match.Content, &match.DocumentID, &match.Distance); err != nil {
				return fmt.Errorf("scan chunk: %w", err)
			}
			matches = append(matches, match)
		}
		return rows.Err()
	})
	return matches, err
}

func (s *PgVectorStore) DeleteByDocument(ctx context.Context, creatorID, docID uuid.UUID) error {
	return hubpgx.WithTenant(ctx, s.pool, creatorID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, "DELETE FROM rag_chunks WHERE document_id = $1", docID)
		return err
	})
}
