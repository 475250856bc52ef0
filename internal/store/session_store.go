package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

// ErrSessionNotFound unknown, expired or logged-out token.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps one JSON SessionIdentity per token under keyPrefix+token.
type SessionStore struct {
	kv        KV
	keyPrefix string
	ttl       time.Duration
}

func NewSessionStore(kv KV, keyPrefix string, ttl time.Duration) *SessionStore {
	return &SessionStore{kv: kv, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *SessionStore) key(token string) string {
	return s.keyPrefix + token
}

// Create persists identity under a fresh random token.
func (s *SessionStore) Create(ctx context.Context, identity domain.SessionIdentity) (string, error) {
	b, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	token := uuid.NewString()
	if err := s.kv.Set(ctx, s.key(token), string(b), s.ttl); err != nil {
		return "", fmt.Errorf("failed to persist session: %w", err)
	}
	return token, nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (*domain.SessionIdentity, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	raw, err := s.kv.Get(ctx, s.key(token))
	if errors.Is(err, ErrMiss) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var identity domain.SessionIdentity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	return &identity, nil
}

// Delete is idempotent.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.kv.Del(ctx, s.key(token)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
