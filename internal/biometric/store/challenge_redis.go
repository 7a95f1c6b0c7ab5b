package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clockgate/internal/biometric/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
)

// expiredGrace keeps lapsed challenges readable for a while so callers get
// challenge_expired rather than invalid_response.
const expiredGrace = time.Minute

// ChallengeRedis stores challenges in Redis. GETDEL makes consumption
// atomic across instances.
type ChallengeRedis struct {
	client *redis.Client
}

func NewChallengeRedis(client *redis.Client) *ChallengeRedis {
	return &ChallengeRedis{client: client}
}

func (s *ChallengeRedis) Save(ctx context.Context, challenge models.Challenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	ttl := challenge.ExpiresAt.Sub(challenge.IssuedAt) + expiredGrace
	if ttl <= 0 {
		ttl = expiredGrace
	}
	if err := s.client.Set(ctx, challengeKey(challenge.IdentityID, challenge.Value), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

func (s *ChallengeRedis) Consume(ctx context.Context, identityID id.IdentityID, value string, now time.Time) (*models.Challenge, error) {
	raw, err := s.client.GetDel(ctx, challengeKey(identityID, value)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("challenge not outstanding: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", errors.Join(err, sentinel.ErrUnavailable))
	}
	var challenge models.Challenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	if challenge.ExpiredAt(now) {
		return nil, fmt.Errorf("challenge lapsed at %s: %w", challenge.ExpiresAt.Format(time.RFC3339), sentinel.ErrExpired)
	}
	return &challenge, nil
}

func challengeKey(identityID id.IdentityID, value string) string {
	return "clockgate:challenge:" + identityID.String() + ":" + value
}
