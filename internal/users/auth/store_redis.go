// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/backoffice/internal/platform/constants"
)

// SessionStore keeps the denylist of invalidated session token ids.
type SessionStore interface {
	// Revoke denylists a token id for ttl. A non-positive ttl is a no-op.
	Revoke(context context.Context, tokenID string, ttl time.Duration) error

	// IsRevoked reports whether the token id has been denylisted.
	IsRevoked(context context.Context, tokenID string) (bool, error)
}

// RedisSessionStore implements [SessionStore] using Redis keys that expire
// with the sessions they block.
type RedisSessionStore struct {
	client redis.UniversalClient
}

// NewSessionStore creates a new Redis-backed SessionStore.
func NewSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func revokedKey(tokenID string) string {
	return constants.RedisPrefixRevokedToken + tokenID
}

/*
Revoke stores the token id until the token could no longer be used.

Parameters:
  - context: context.Context
  - tokenID: string (jti)
  - ttl: time.Duration

Returns:
  - error: Storage failures
*/
func (repository *RedisSessionStore) Revoke(context context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := repository.client.Set(context, revokedKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_revoke_failed: %w", err)
	}

	return nil
}

// IsRevoked looks the token id up in the denylist.
func (repository *RedisSessionStore) IsRevoked(context context.Context, tokenID string) (bool, error) {
	err := repository.client.Get(context, revokedKey(tokenID)).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, fmt.Errorf("redis_session_lookup_failed: %w", err)
}
