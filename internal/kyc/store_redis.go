// Copyright (c) 2026 VisionVerse. All rights reserved.
// Author: dev@visionverse.app

package kyc

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/visionverse/identity-api/internal/identity"
	"github.com/visionverse/identity-api/internal/platform/constants"
)

// RedisStore implements [Store] on Redis. All keys carry a TTL; nothing in
// this store is durable user data.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed [Store].
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

/*
MarkWebhook records a processed webhook via SETNX.

Description: The first writer for a (sessionID, status) pair gets true;
replays get false and must not re-apply side effects.

Returns:
  - bool: true when this call was the first writer
  - error: Connectivity errors
*/
func (store *RedisStore) MarkWebhook(ctx context.Context, sessionID string, status identity.Status) (bool, error) {
	key := constants.RedisPrefixWebhookSeen + sessionID + ":" + string(status)

	first, err := store.client.SetNX(ctx, key, "1", linkTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis_webhook_mark_failed: %w", err)
	}
	return first, nil
}

/*
SaveLink records the user → verification session link with TTL.
*/
func (store *RedisStore) SaveLink(ctx context.Context, userID, sessionID string) error {
	key := constants.RedisPrefixUserLink + userID

	if err := store.client.Set(ctx, key, sessionID, linkTTL).Err(); err != nil {
		return fmt.Errorf("redis_link_save_failed: %w", err)
	}
	return nil
}

/*
Link retrieves the verification session linked to a user.

Description: Returns "" without error when no link exists (absence is an
expected state, not a failure).
*/
func (store *RedisStore) Link(ctx context.Context, userID string) (string, error) {
	key := constants.RedisPrefixUserLink + userID

	sessionID, err := store.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis_link_get_failed: %w", err)
	}
	return sessionID, nil
}

/*
SaveStatus caches the last authoritative status of a verification session.
*/
func (store *RedisStore) SaveStatus(ctx context.Context, sessionID string, status identity.Status) error {
	key := constants.RedisPrefixStatus + sessionID

	if err := store.client.Set(ctx, key, string(status), linkTTL).Err(); err != nil {
		return fmt.Errorf("redis_status_save_failed: %w", err)
	}
	return nil
}

/*
LastStatus retrieves the cached status of a verification session.

Description: Returns "" without error when nothing is cached.
*/
func (store *RedisStore) LastStatus(ctx context.Context, sessionID string) (identity.Status, error) {
	key := constants.RedisPrefixStatus + sessionID

	value, err := store.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis_status_get_failed: %w", err)
	}
	return identity.Status(value), nil
}
