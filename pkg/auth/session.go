package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Session is the server-side half of a login. Refresh tokens are only honored
// while their session is alive, so logout actually revokes access.
type Session struct {
	ID        string    `json:"id"`
	CreatorID uuid.UUID `json:"creator_id"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore persists sessions in Redis with a sliding TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "session:" + id
}

// Create stores a new session and returns it.
func (s *SessionStore) Create(ctx context.Context, creatorID uuid.UUID, userAgent string) (*Session, error) {
	session := &Session{
		ID:        uuid.New().String(),
		CreatorID: creatorID,
		UserAgent: userAgent,
		CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

// Get loads a session, extending its TTL on hit.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := s.client.GetEx(ctx, sessionKey(id), s.ttl).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Revoke deletes a session. Deleting an absent session is not an error.
func (s *SessionStore) Revoke(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
