package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-attempt-engine/internal/domain"
)

// DefinitionLoader fetches quiz definitions from a backing store (e.g.
// Postgres).
type DefinitionLoader interface {
	LoadDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// QuizStore caches definitions with TTL to avoid repeated backing-store
// hits; concurrent misses for the same quiz collapse into one load.
type QuizStore struct {
	loader DefinitionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedDefinition
}

type cachedDefinition struct {
	def       domain.QuizDefinition
	expiresAt time.Time
}

func NewQuizStore(loader DefinitionLoader, ttl time.Duration) *QuizStore {
	return &QuizStore{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedDefinition),
	}
}

func (s *QuizStore) GetDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	now := s.clock()

	s.mu.RLock()
	if entry, ok := s.cache[quizID]; ok && entry.expiresAt.After(now) {
		s.mu.RUnlock()
		return entry.def, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do(quizID, func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if entry, ok := s.cache[quizID]; ok && entry.expiresAt.After(now) {
			s.mu.RUnlock()
			return entry.def, nil
		}
		s.mu.RUnlock()

		def, err := s.loader.LoadDefinition(ctx, quizID)
		if err != nil {
			return domain.QuizDefinition{}, err
		}

		s.mu.Lock()
		s.cache[quizID] = cachedDefinition{
			def:       def,
			expiresAt: now.Add(s.ttlWithJitter()),
		}
		s.mu.Unlock()
		return def, nil
	})
	if err != nil {
		return domain.QuizDefinition{}, err
	}
	return result.(domain.QuizDefinition), nil
}

func (s *QuizStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

// StaticDefinitionLoader is a simple loader backed by an in-memory map
// (useful for tests/demos).
type StaticDefinitionLoader struct {
	definitions map[string]domain.QuizDefinition
}

func NewStaticDefinitionLoader(definitions map[string]domain.QuizDefinition) *StaticDefinitionLoader {
	return &StaticDefinitionLoader{definitions: definitions}
}

func (l *StaticDefinitionLoader) LoadDefinition(_ context.Context, quizID string) (domain.QuizDefinition, error) {
	if def, ok := l.definitions[quizID]; ok {
		return def, nil
	}
	return domain.QuizDefinition{}, domain.ErrQuizUnavailable
}
