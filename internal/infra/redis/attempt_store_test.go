package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-attempt-engine/internal/domain"
	"quiz-attempt-engine/internal/grading"
)

func TestAttemptStoreRoundTripWithTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewAttemptStore(newClient(mr), time.Minute)
	deadline := time.Date(2024, 11, 22, 10, 1, 0, 0, time.UTC)
	rec := grading.Record{
		AttemptID:   "tok-1",
		QuizID:      "quiz-1",
		QuestionIDs: []string{"q1"},
		StartedAt:   deadline.Add(-time.Minute),
		Deadline:    &deadline,
	}

	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("quiz:attempt:tok-1") {
		t.Fatalf("expected redis key to be set")
	}

	got, err := store.Get(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.QuizID != "quiz-1" || got.Deadline == nil || !got.Deadline.Equal(deadline) {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Records age out with the TTL.
	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(context.Background(), "tok-1"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt not found after TTL, got %v", err)
	}
}
