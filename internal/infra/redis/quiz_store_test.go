package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-attempt-engine/internal/domain"
	"quiz-attempt-engine/internal/infra/memory"
)

func TestQuizStoreCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		inner: memory.NewStaticDefinitionLoader(map[string]domain.QuizDefinition{
			"quiz-1": sampleDefinition(),
		}),
	}
	store := NewQuizStore(client, loader, time.Minute)

	def, err := store.GetDefinition(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get definition: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(def.Questions) != 1 || def.Questions[0].CorrectIndexes[0] != 1 {
		t.Fatalf("definition lost its answer key in the cache: %+v", def)
	}
	if !mr.Exists("quiz:def:quiz-1") {
		t.Fatalf("expected redis key to be set")
	}

	// Second call should hit Redis, loader not incremented.
	if _, err := store.GetDefinition(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get definition: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	inner memory.DefinitionLoader
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

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
