package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quiz-attempt-engine/internal/authority"
	"quiz-attempt-engine/internal/domain"
	"quiz-attempt-engine/internal/grading"
	"quiz-attempt-engine/internal/infra/memory"
)

func testDefinition() domain.QuizDefinition {
	return domain.QuizDefinition{
		Quiz: domain.Quiz{
			ID:                  "quiz-1",
			Title:               "Sample",
			PassingScorePercent: 70,
			Active:              true,
		},
		Questions: []domain.KeyedQuestion{
			{
				Question:       domain.Question{ID: "q1", Text: "one", Options: []string{"a", "b"}, Type: domain.SingleChoice, Points: 1},
				CorrectIndexes: []int{1},
			},
			{
				Question:       domain.Question{ID: "q2", Text: "two", Options: []string{"a", "b", "c"}, Type: domain.MultipleSelect, Points: 2},
				CorrectIndexes: []int{0, 2},
			},
		},
	}
}

func newAuthorityServer(t *testing.T) (*httptest.Server, *authority.Client) {
	t.Helper()
	quizzes := memory.NewQuizStore(memory.NewStaticDefinitionLoader(map[string]domain.QuizDefinition{
		"quiz-1": testDefinition(),
	}), 5*time.Minute)
	svc := grading.NewService(quizzes, memory.NewAttemptStore(), 5*time.Second)

	mux := http.NewServeMux()
	NewAuthorityHandler(svc).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, authority.NewClient(server.URL, server.Client())
}

func TestAttemptRoundTripOverHTTP(t *testing.T) {
	_, client := newAuthorityServer(t)

	seed, err := client.StartAttempt(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if seed.AttemptID == "" || len(seed.Questions) != 2 {
		t.Fatalf("unexpected seed: %+v", seed)
	}

	idx := 1
	result, err := client.SubmitAttempt(context.Background(), seed.AttemptID, []domain.AnswerPayload{
		{QuestionID: "q1", SelectedIndex: &idx},
		{QuestionID: "q2", SelectedIndexes: []int{0, 2}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Passed || result.ScorePercent != 100 {
		t.Fatalf("expected a passing result, got %+v", result)
	}
}

func TestResubmitResolvesToStoredResult(t *testing.T) {
	_, client := newAuthorityServer(t)

	seed, err := client.StartAttempt(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	idx := 1
	answers := []domain.AnswerPayload{
		{QuestionID: "q1", SelectedIndex: &idx},
		{QuestionID: "q2", Unanswered: true},
	}
	first, err := client.SubmitAttempt(context.Background(), seed.AttemptID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = client.SubmitAttempt(context.Background(), seed.AttemptID, answers)
	var already *domain.AlreadySubmittedError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadySubmittedError, got %v", err)
	}
	if already.Result.ScorePercent != first.ScorePercent {
		t.Fatalf("stored result differs: %+v vs %+v", already.Result, first)
	}
}

func TestStartUnknownQuizMapsTo404(t *testing.T) {
	_, client := newAuthorityServer(t)

	if _, err := client.StartAttempt(context.Background(), "quiz-404"); !errors.Is(err, domain.ErrQuizUnavailable) {
		t.Fatalf("expected quiz unavailable, got %v", err)
	}
}

func TestSubmitUnknownAttemptMapsTo404(t *testing.T) {
	_, client := newAuthorityServer(t)

	if _, err := client.SubmitAttempt(context.Background(), "tok-404", nil); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt not found, got %v", err)
	}
}

func TestMalformedSubmissionBodyIs400(t *testing.T) {
	server, _ := newAuthorityServer(t)

	resp, err := http.Post(server.URL+"/attempts/tok-1/submission", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	server, _ := newAuthorityServer(t)
	client := authority.NewClient(server.URL, nil)
	server.Close()

	_, err := client.StartAttempt(context.Background(), "quiz-1")
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}

	_, err = client.SubmitAttempt(context.Background(), "tok-1", nil)
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}
