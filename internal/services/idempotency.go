package services

import (
	"context"
	"time"

	"github.com/fossabot/hull-customerio/internal/repository"
)

const defaultIdempotencyTTL = 24 * time.Hour

// IdempotencyService remembers webhook deliveries that were already handled.
type IdempotencyService struct {
	redisRepo *repository.RedisRepository
	ttl       time.Duration
}

// NewIdempotencyService creates a new IdempotencyService.
func NewIdempotencyService(redisRepo *repository.RedisRepository, ttl time.Duration) *IdempotencyService {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyService{redisRepo: redisRepo, ttl: ttl}
}

// IsDuplicate reports whether the webhook event id has been seen before and
// marks it as seen otherwise.
func (s *IdempotencyService) IsDuplicate(ctx context.Context, eventID string) (bool, error) {
	claimed, err := s.redisRepo.Claim(ctx, "webhook:event:"+eventID, s.ttl)
	if err != nil {
		return false, err
	}
	return !claimed, nil
}
