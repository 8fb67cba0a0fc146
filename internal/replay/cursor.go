package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fundline/internal/constants"
	"fundline/internal/eventstore"
)

// CursorStore checkpoints replay progress in Redis so an interrupted run can
// resume from the last dispatched event instead of starting over.
type CursorStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCursorStore(client *redis.Client, ttl time.Duration) *CursorStore {
	if ttl <= 0 {
		ttl = time.Duration(constants.DefaultTTLSeconds) * time.Second
	}
	return &CursorStore{
		client: client,
		ttl:    ttl,
	}
}

func cursorKey(runID string) string {
	return constants.CacheKeyPrefixReplay + runID
}

func (s *CursorStore) Save(ctx context.Context, runID string, cursor eventstore.Cursor) error {
	data, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("failed to marshal replay cursor: %w", err)
	}

	if err := s.client.Set(ctx, cursorKey(runID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save replay cursor: %w", err)
	}

	return nil
}

// Load returns nil when the run has no checkpoint.
func (s *CursorStore) Load(ctx context.Context, runID string) (*eventstore.Cursor, error) {
	data, err := s.client.Get(ctx, cursorKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load replay cursor: %w", err)
	}

	var cursor eventstore.Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal replay cursor: %w", err)
	}

	return &cursor, nil
}

func (s *CursorStore) Clear(ctx context.Context, runID string) error {
	if err := s.client.Del(ctx, cursorKey(runID)).Err(); err != nil {
		return fmt.Errorf("failed to clear replay cursor: %w", err)
	}
	return nil
}
