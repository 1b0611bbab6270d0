package rag

import (
	"context"

	"github.com/google/uuid"
)

// Chunk is one embedded slice of a creator document.
type Chunk struct {
	ID         string
	DocumentID uuid.UUID
	Content    string
	Embedding  []float32
	Ordinal    int
}

// Match is a retrieved chunk with its similarity distance (lower is closer).
type Match struct {
	Content    string
	DocumentID uuid.UUID
	Distance   float64
}

// VectorStore persists and retrieves embedded chunks. Every operation is
// scoped to a creator; stores must never return another tenant's chunks.
type VectorStore interface {
	Upsert(ctx context.Context, creatorID uuid.UUID, chunks []Chunk) error
	Query(ctx context.Context, creatorID uuid.UUID, embedding []float32, topK int) ([]Match, error)
	DeleteByDocument(ctx context.Context, creatorID, docID uuid.UUID) error
}
