package memory

import (
	"context"
	"sync"

	"quiz-attempt-engine/internal/domain"
	"quiz-attempt-engine/internal/grading"
)

// AttemptStore keeps attempt records in process memory.
type AttemptStore struct {
	mu      sync.RWMutex
	records map[string]grading.Record
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{records: make(map[string]grading.Record)}
}

func (s *AttemptStore) Save(_ context.Context, rec grading.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.AttemptID] = rec
	return nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (grading.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[attemptID]
	if !ok {
		return grading.Record{}, domain.ErrAttemptNotFound
	}
	return rec, nil
}
