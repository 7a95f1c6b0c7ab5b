package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clockgate/internal/clock/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
)

const defaultSessionTTL = 24 * time.Hour

// RedisStore keeps clock sessions in Redis so any instance can serve the
// next step. Sessions lapse after ttl of inactivity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, identityID id.IdentityID) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(identityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("no session: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", errors.Join(err, sentinel.ErrUnavailable))
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.IdentityID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", errors.Join(err, sentinel.ErrUnavailable))
	}
	return nil
}

func sessionKey(identityID id.IdentityID) string {
	return "clockgate:session:" + identityID.String()
}
