package creator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	hubpgx "github.com/creatorhub/hub/pkg/pgx"
)

var ErrNotFound = errors.New("not found")

// Repository runs tenant-scoped queries. Every method executes inside
// hubpgx.WithTenant, which pins app.current_creator_id on the transaction so
// the RLS policies do the filtering; no query here mentions creator_id in a
// WHERE clause except on insert.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAssistant returns the creator's assistant settings, or defaults when the
// row does not exist yet.
func (r *Repository) GetAssistant(ctx context.Context, creatorID uuid.UUID) (*Assistant, error) {
	assistant := &Assistant{CreatorID: creatorID}
	err := hubpgx.WithTenant(ctx, r.pool, creatorID, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT persona, greeting, model, temperature, updated_at FROM assistants`,
		).Scan(&assistant.Persona, &assistant.Greeting, &assistant.Model, &assistant.Temperature, &assistant.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			assistant.Model = "llama3.2:3b"
			assistant.Temperature = 0.7
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get assistant: %w", err)
	}
	return assistant, nil
}

// UpsertAssistant writes the creator's assistant settings.
func (r *Repository) UpsertAssistant(ctx context.Context, a *Assistant) error {
	err := hubpgx.WithTenant(ctx, r.pool, a.CreatorID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`INSERT INTO assistants (creator_id, persona, greeting, model, temperature)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (creator_id) DO UPDATE
			 SET persona = EXCLUDED.persona, greeting = EXCLUDED.greeting,
			     model = EXCLUDED.model, temperature = EXCLUDED.temperature,
			     updated_at = now()
			 RETURNING updated_at`,
			a.CreatorID, a.Persona, a.Greeting, a.Model, a.Temperature,
		).Scan(&a.UpdatedAt)
	})
	if err != nil {
		return fmt.Errorf("upsert assistant: %w", err)
	}
	return nil
}

// ListClients returns the creator's clients, most recently seen first.
func (r *Repository) ListClients(ctx context.Context, creatorID uuid.UUID) ([]Client, error) {
	var clients []Client
	err := hubpgx.WithTenant(ctx, r.pool, creatorID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, creator_id, channel, external_id, display_name, created_at, last_seen_at
			 FROM clients ORDER BY last_seen_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c Client
			if err := rows.Scan(&c.ID, &c.CreatorID, &c.Channel, &c.ExternalID,
				&c.DisplayName, &c.CreatedAt, &c.LastSeenAt); err != nil {
				return err
			}
			clients = append(clients, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// UpsertClient records a client by channel identity, bumping last_seen_at on
// repeat contact. Called from the worker on every inbound message.
func (r *Repository) UpsertClient(ctx context.Context, creatorID uuid.UUID, channel, externalID, displayName string) (*Client, error) {
	client := &Client{}
	err := hubpgx.WithTenant(ctx, r.pool, creatorID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`INSERT INTO clients (creator_id, channel, external_id, display_name)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (creator_id, channel, external_id) DO UPDATE
			 SET last_seen_at = now(),
			     display_name = CASE WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name
			                         ELSE clients.display_name END
			 RETURNING id, creator_id, channel, external_id, display_name, created_at, last_seen_at`,
			creatorID, channel, externalID, displayName,
		).Scan(&client.ID, &client.CreatorID, &client.Channel, &client.ExternalID,
			&client.DisplayName, &client.CreatedAt, &client.LastSeenAt)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert client: %w", err)
	}
	return client, nil
}

// DeleteClient removes a client record.
func (r *Repository) DeleteClient(ctx context.Context, creatorID, clientID uuid.UUID) error {
	return r.deleteByID(ctx, creatorID, "clients", clientID)
}

// CreateDocument registers a knowledge-base document in pending state.
func (r *Repository) CreateDocument(ctx context.Context, creatorID uuid.UUID, title, source string) (*Document, error) {
	doc := &Document{}
	err := hubpgx.WithTenant(ctx, r.pool, creatorID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`INSERT INTO documents (creator_id, title, source, status)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, creator_id, title, source, status, chunk_count, created_at, updated_at`,
			creatorID, title, source, DocumentPending,
		).Scan(&doc.ID, &doc.CreatorID, &doc.Title, &doc.Source, &doc.Status,
			&doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the creator's documents, newest first.
func (r *Repository) ListDocuments(ctx context.Context, creatorID uuid.UUID) ([]Document, error) {
	var docs []Document
	err := hubpgx.WithTenant(ctx, r.pool, creatorID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, creator_id, title, source, status, chunk_count, created_at, updated_at
			 FROM documents ORDER BY created_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var d Document
			if err := rows.Scan(&d.ID, &d.CreatorID, &d.Title, &d.Source, &d.Status,
				&d.ChunkCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
				return err
			}
			docs = append(docs, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// SetDocumentStatus updates ingestion progress on a document.
func (r *Repository) SetDocumentStatus(ctx context.Context, creatorID, docID uuid.UUID, status string, chunkCount int) error {
	err := hubpgx.WithTenant(ctx, r.pool, creatorID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE documents SET status = $2, chunk_count = $3, updated_at = now() WHERE id = $1`,
			docID, status, chunkCount)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("set document status: %w", err)
	}
	return nil
}

// DeleteDocument removes document metadata.
func (r *Repository) DeleteDocument(ctx context.Context, creatorID, docID uuid.UUID) error {
	return r.deleteByID(ctx, creatorID, "documents", docID)
}

func (r *Repository) deleteByID(ctx context.Context, creatorID uuid.UUID, table string, id uuid.UUID) error {
	err := hubpgx.WithTenant(ctx, r.pool, creatorID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}
