package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-attempt-engine/internal/domain"
	"quiz-attempt-engine/internal/infra/memory"
)

// QuizStore caches quiz definitions in Redis (JSON value per quiz) and falls
// back to a loader on cache miss. Concurrent misses collapse into one load.
type QuizStore struct {
	client *redis.Client
	loader memory.DefinitionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizStore(client *redis.Client, loader memory.DefinitionLoader, ttl time.Duration) *QuizStore {
	return &QuizStore{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *QuizStore) GetDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	key := s.key(quizID)

	if def, ok := s.fromCache(ctx, key); ok {
		return def, nil
	}

	result, err, _ := s.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if def, ok := s.fromCache(ctx, key); ok {
			return def, nil
		}

		def, err := s.loader.LoadDefinition(ctx, quizID)
		if err != nil {
			return domain.QuizDefinition{}, err
		}

		data, err := json.Marshal(def)
		if err != nil {
			return domain.QuizDefinition{}, fmt.Errorf("marshal definition: %w", err)
		}
		// best-effort cache fill
		_ = s.client.Set(ctx, key, data, s.ttlWithJitter()).Err()
		return def, nil
	})
	if err != nil {
		return domain.QuizDefinition{}, err
	}
	return result.(domain.QuizDefinition), nil
}

func (s *QuizStore) fromCache(ctx context.Context, key string) (domain.QuizDefinition, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.QuizDefinition{}, false
	}
	var def domain.QuizDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return domain.QuizDefinition{}, false
	}
	return def, true
}

func (s *QuizStore) key(quizID string) string {
	return "quiz:def:" + quizID
}

func (s *QuizStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
