package grantstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harmonia-studio/harmonia-api/internal/models"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
)

// RedisStore keeps grants in Redis keyed by project id. Redis owns expiry via
// the key TTL, so a Get hit is by construction unexpired.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed grant store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func grantKey(projectID string) string {
	return fmt.Sprintf("grant:project:%s", projectID)
}

func (s *RedisStore) Put(ctx context.Context, projectID, email string, ttl time.Duration) (*models.AccessGrant, error) {
	now := time.Now().UTC()
	grant := &models.AccessGrant{
		ProjectID: projectID,
		Email:     email,
		GrantedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	payload, err := json.Marshal(grant)
	if err != nil {
		return nil, fmt.Errorf("marshal grant for project %s: %w", projectID, err)
	}

	if err := s.client.Set(ctx, grantKey(projectID), payload, ttl).Err(); err != nil {
		return nil, fmt.Errorf("store grant for project %s: %w", projectID, err)
	}

	return grant, nil
}

func (s *RedisStore) Get(ctx context.Context, projectID string) (*models.AccessGrant, error) {
	raw, err := s.client.Get(ctx, grantKey(projectID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrGrantRequired
		}
		return nil, fmt.Errorf("load grant for project %s: %w", projectID, err)
	}

	var grant models.AccessGrant
	if err := json.Unmarshal(raw, &grant); err != nil {
		return nil, fmt.Errorf("unmarshal grant for project %s: %w", projectID, err)
	}

	if !grant.Valid(projectID, time.Now().UTC()) {
		return nil, appErrors.ErrGrantRequired
	}

	return &grant, nil
}

func (s *RedisStore) Clear(ctx context.Context, projectID string) error {
	if err := s.client.Del(ctx, grantKey(projectID)).Err(); err != nil {
		return fmt.Errorf("clear grant for project %s: %w", projectID, err)
	}
	return nil
}
