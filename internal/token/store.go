// Package token issues and resolves opaque bearer tokens backed by Redis.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the token does not exist or has expired.
var ErrNotFound = errors.New("token: not found")

// Store keeps issued tokens server-side with a TTL. Tokens are random and
// carry no claims; everything about the caller is resolved from the
// principal registry at request time.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

type payload struct {
	Identity string    `json:"identity"`
	IssuedAt time.Time `json:"issued_at"`
}

// Token is an issued credential handle returned to the client.
type Token struct {
	Value     string
	ExpiresIn time.Duration
}

// NewStore constructs a Store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Issue creates a fresh token bound to the identity.
func (s *Store) Issue(ctx context.Context, identity string) (Token, error) {
	value := generateTokenID()
	data, err := json.Marshal(payload{Identity: identity, IssuedAt: time.Now().UTC()})
	if err != nil {
		return Token{}, err
	}
	if err := s.client.Set(ctx, s.redisKey(value), data, s.ttl).Err(); err != nil {
		return Token{}, fmt.Errorf("token: store: %w", err)
	}
	return Token{Value: value, ExpiresIn: s.ttl}, nil
}

// Resolve returns the identity a token was issued for.
func (s *Store) Resolve(ctx context.Context, value string) (string, error) {
	if value == "" {
		return "", ErrNotFound
	}
	data, err := s.client.Get(ctx, s.redisKey(value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("token: resolve: %w", err)
	}
	var stored payload
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", fmt.Errorf("token: decode: %w", err)
	}
	return stored.Identity, nil
}

// Revoke deletes a token. Revoking an unknown token is not an error.
func (s *Store) Revoke(ctx context.Context, value string) error {
	if err := s.client.Del(ctx, s.redisKey(value)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("token: revoke: %w", err)
	}
	return nil
}

// TTL exposes the configured token lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) redisKey(value string) string {
	return "token:" + value
}

func generateTokenID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
