package pgx

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tenant isolation rides on PostgreSQL Row-Level Security. Every tenant-scoped
// table carries a policy of the form
//
//	USING (creator_id = current_setting('app.current_creator_id')::uuid)
//
// and repositories never filter by tenant themselves: they run inside
// WithTenant, which pins the GUC for the duration of one transaction.

// WithTenant runs fn in a transaction with app.current_creator_id set via
// SET LOCAL, so the setting cannot leak onto a pooled connection after commit
// or rollback.
func WithTenant(ctx context.Context, pool *pgxpool.Pool, creatorID uuid.UUID, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// set_config with is_local=true is the parameterizable form of SET LOCAL.
	if _, err := tx.Exec(ctx, "SELECT set_config('app.current_creator_id', $1, true)", creatorID.String()); err != nil {
		return fmt.Errorf("set tenant: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CurrentTenant reads app.current_creator_id back from the session; mainly
// useful in tests asserting that RLS context is in place.
func CurrentTenant(ctx context.Context, tx pgx.Tx) (uuid.UUID, error) {
	var raw string
	if err := tx.QueryRow(ctx, "SELECT COALESCE(current_setting('app.current_creator_id', true), '')").Scan(&raw); err != nil {
		return uuid.Nil, fmt.Errorf("current_setting: %w", err)
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("no tenant set on connection")
	}
	return uuid.Parse(raw)
}
