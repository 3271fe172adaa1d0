package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-attempt-engine/internal/domain"
	"quiz-attempt-engine/internal/grading"
)

// AttemptStore persists attempt records in Redis with a TTL, so abandoned
// attempts age out on their own. Graded records keep the same TTL; review
// windows longer than that belong in a durable store.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Save(ctx context.Context, rec grading.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	if err := s.client.Set(ctx, s.key(rec.AttemptID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (grading.Record, error) {
	data, err := s.client.Get(ctx, s.key(attemptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return grading.Record{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return grading.Record{}, fmt.Errorf("load attempt: %w", err)
	}
	var rec grading.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return grading.Record{}, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return rec, nil
}

func (s *AttemptStore) key(attemptID string) string {
	return "quiz:attempt:" + attemptID
}
