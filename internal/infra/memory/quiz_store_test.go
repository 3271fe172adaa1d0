package memory

import (
	"context"
	"testing"
	"time"

	"quiz-attempt-engine/internal/domain"
)

func TestQuizStoreCachesDefinitions(t *testing.T) {
	loader := &countingLoader{
		inner: NewStaticDefinitionLoader(map[string]domain.QuizDefinition{
			"quiz-1": sampleDefinition(),
		}),
	}
	store := NewQuizStore(loader, time.Minute)

	if _, err := store.GetDefinition(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get definition: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit cache, loader not incremented.
	if _, err := store.GetDefinition(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get definition: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestQuizStorePropagatesMiss(t *testing.T) {
	store := NewQuizStore(NewStaticDefinitionLoader(nil), time.Minute)
	if _, err := store.GetDefinition(context.Background(), "quiz-404"); err != domain.ErrQuizUnavailable {
		t.Fatalf("expected quiz unavailable, got %v", err)
	}
}

type countingLoader struct {
	inner DefinitionLoader
	calls int
}

func (l *countingLoader) LoadDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	l.calls++
	return l.inner.LoadDefinition(ctx, quizID)
}

func sampleDefinition() domain.QuizDefinition {
	return domain.QuizDefinition{
		Quiz: domain.Quiz{ID: "quiz-1", Title: "Sample", PassingScorePercent: 70, Active: true},
		Questions: []domain.KeyedQuestion{
			{
				Question:       domain.Question{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4"}, Type: domain.SingleChoice, Points: 1},
				CorrectIndexes: []int{1},
			},
		},
	}
}
