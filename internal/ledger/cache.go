package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"fundline/internal/constants"
	"fundline/internal/logger"
)

// CachedRepository fronts the durable ledger with a Redis read-through cache
// of complete keys. The cache only ever short-circuits duplicates; every
// positive claim still goes through Postgres, so a cold or broken cache can
// cost an extra query but never a double side effect.
type CachedRepository struct {
	repo   Repository
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedRepository(repo Repository, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = time.Duration(constants.DefaultTTLSeconds) * time.Second
	}
	return &CachedRepository{
		repo:   repo,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func cacheKey(eventID, processorName string) string {
	return constants.CacheKeyPrefixLedger + eventID + ":" + processorName
}

func (r *CachedRepository) Claim(ctx context.Context, eventID, processorName string, staleBefore time.Time) (bool, error) {
	val, err := r.client.Get(ctx, cacheKey(eventID, processorName)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.WarnwCtx(ctx, "Ledger cache read failed, falling back to store",
			"error", err,
			"event_id", eventID,
			"processor", processorName,
		)
	}
	if err == nil && val == StatusComplete {
		return false, nil
	}

	return r.repo.Claim(ctx, eventID, processorName, staleBefore)
}

func (r *CachedRepository) MarkComplete(ctx context.Context, eventID, processorName string) error {
	if err := r.repo.MarkComplete(ctx, eventID, processorName); err != nil {
		return err
	}

	if err := r.client.Set(ctx, cacheKey(eventID, processorName), StatusComplete, r.ttl).Err(); err != nil {
		r.logger.WarnwCtx(ctx, "Ledger cache write failed",
			"error", err,
			"event_id", eventID,
			"processor", processorName,
		)
	}

	return nil
}

func (r *CachedRepository) MarkFailed(ctx context.Context, eventID, processorName, reason string) error {
	return r.repo.MarkFailed(ctx, eventID, processorName, reason)
}

func (r *CachedRepository) Get(ctx context.Context, eventID, processorName string) (*Record, error) {
	return r.repo.Get(ctx, eventID, processorName)
}

func (r *CachedRepository) List(ctx context.Context, filter Filter) ([]Record, error) {
	return r.repo.List(ctx, filter)
}
