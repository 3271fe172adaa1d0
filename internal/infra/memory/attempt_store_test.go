package memory

import (
	"context"
	"testing"
	"time"

	"quiz-attempt-engine/internal/domain"
	"quiz-attempt-engine/internal/grading"
)

func TestAttemptStoreRoundTrip(t *testing.T) {
	store := NewAttemptStore()
	rec := grading.Record{
		AttemptID:   "tok-1",
		QuizID:      "quiz-1",
		QuestionIDs: []string{"q1", "q2"},
		StartedAt:   time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC),
	}

	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.QuizID != "quiz-1" || len(got.QuestionIDs) != 2 {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := store.Get(context.Background(), "tok-404"); err != domain.ErrAttemptNotFound {
		t.Fatalf("expected attempt not found, got %v", err)
	}
}
