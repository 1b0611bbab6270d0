package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account is a creator's login record. The creators table is the tenant root
// and is not itself under RLS; everything an account owns is.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccountStore reads and writes creator accounts.
type AccountStore interface {
	Create(ctx context.Context, email, name, passwordHash string) (*Account, error)
	ByEmail(ctx context.Context, email string) (*Account, error)
	ByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// PgAccountStore is the pgx implementation of AccountStore.
type PgAccountStore struct {
	pool *pgxpool.Pool
}

func NewPgAccountStore(pool *pgxpool.Pool) *PgAccountStore {
	return &PgAccountStore{pool: pool}
}

func (s *PgAccountStore) Create(ctx context.Context, email, name, passwordHash string) (*Account, error) {
	account := &Account{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO creators (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, email, name, password_hash, created_at`,
		email, name, passwordHash,
	).Scan(&account.ID, &account.Email, &account.Name, &account.PasswordHash, &account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (s *PgAccountStore) ByEmail(ctx context.Context, email string) (*Account, error) {
	return s.scanOne(ctx,
		`SELECT id, email, name, password_hash, created_at FROM creators WHERE email = $1`, email)
}

func (s *PgAccountStore) ByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.scanOne(ctx,
		`SELECT id, email, name, password_hash, created_at FROM creators WHERE id = $1`, id)
}

func (s *PgAccountStore) scanOne(ctx context.Context, query string, arg any) (*Account, error) {
	account := &Account{}
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&account.ID, &account.Email, &account.Name, &account.PasswordHash, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}
