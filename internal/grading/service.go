package grading

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"quiz-attempt-engine/internal/domain"
)

// QuizStore loads quiz definitions (with answer keys) from a backing store.
type QuizStore interface {
	GetDefinition(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// AttemptStore persists attempt records between start and submission.
type AttemptStore interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, attemptID string) (Record, error)
}

// Record is the authority's view of one attempt: the order it fixed at start
// time, the deadline, and the result once graded.
type Record struct {
	AttemptID   string         `json:"attemptId"`
	QuizID      string         `json:"quizId"`
	QuestionIDs []string       `json:"questionIds"`
	StartedAt   time.Time      `json:"startedAt"`
	Deadline    *time.Time     `json:"deadline,omitempty"`
	Result      *domain.Result `json:"result,omitempty"`
}

// Service is the grading authority: it issues attempt tokens, fixes question
// order, and is the only place pass/fail is computed. Clients only relay
// what it returns.
type Service struct {
	quizzes  QuizStore
	attempts AttemptStore
	grace    time.Duration
	now      func() time.Time
	newToken func() string
	shuffle  func(n int) []int
}

// NewService builds the authority with a grace window for submissions that
// arrive shortly after the deadline (forced submissions race network
// latency).
func NewService(quizzes QuizStore, attempts AttemptStore, grace time.Duration) *Service {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Service{
		quizzes:  quizzes,
		attempts: attempts,
		grace:    grace,
		now:      time.Now,
		newToken: func() string { return uuid.NewString() },
		shuffle:  rnd.Perm,
	}
}

// NewServiceWithClock is test-only for deterministic timestamps and tokens.
func NewServiceWithClock(quizzes QuizStore, attempts AttemptStore, grace time.Duration, now func() time.Time, newToken func() string) *Service {
	svc := NewService(quizzes, attempts, grace)
	svc.now = now
	svc.newToken = newToken
	svc.shuffle = identityOrder
	return svc
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// StartAttempt allocates a new attempt for the quiz. The question order is
// decided here, once, and the answer key is stripped before anything crosses
// back to the caller.
func (s *Service) StartAttempt(ctx context.Context, quizID string) (domain.AttemptSeed, error) {
	def, err := s.quizzes.GetDefinition(ctx, quizID)
	if err != nil {
		return domain.AttemptSeed{}, err
	}
	if !def.Quiz.Active {
		return domain.AttemptSeed{}, fmt.Errorf("%w: quiz %q is inactive", domain.ErrQuizUnavailable, quizID)
	}
	if len(def.Questions) == 0 {
		return domain.AttemptSeed{}, fmt.Errorf("%w: quiz %q has no questions", domain.ErrQuizUnavailable, quizID)
	}

	order := identityOrder(len(def.Questions))
	if def.Quiz.Shuffle {
		order = s.shuffle(len(def.Questions))
	}

	questions := make([]domain.Question, 0, len(def.Questions))
	questionIDs := make([]string, 0, len(def.Questions))
	for _, i := range order {
		questions = append(questions, def.Questions[i].Question)
		questionIDs = append(questionIDs, def.Questions[i].ID)
	}

	startedAt := s.now()
	rec := Record{
		AttemptID:   s.newToken(),
		QuizID:      quizID,
		QuestionIDs: questionIDs,
		StartedAt:   startedAt,
	}
	if def.Quiz.TimeLimitSeconds > 0 {
		deadline := startedAt.Add(time.Duration(def.Quiz.TimeLimitSeconds) * time.Second)
		rec.Deadline = &deadline
	}
	if err := s.attempts.Save(ctx, rec); err != nil {
		return domain.AttemptSeed{}, fmt.Errorf("save attempt: %w", err)
	}

	return domain.AttemptSeed{
		AttemptID:           rec.AttemptID,
		QuizID:              quizID,
		QuizTitle:           def.Quiz.Title,
		Questions:           questions,
		TimeLimitSeconds:    def.Quiz.TimeLimitSeconds,
		PassingScorePercent: def.Quiz.PassingScorePercent,
	}, nil
}

// SubmitAttempt grades the submission and stores the result. A repeat
// submission for an already-graded attempt returns the stored result via
// AlreadySubmittedError so callers can reconcile instead of erroring.
func (s *Service) SubmitAttempt(ctx context.Context, attemptID string, answers []domain.AnswerPayload) (domain.Result, error) {
	rec, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Result{}, err
	}
	if rec.Result != nil {
		return domain.Result{}, &domain.AlreadySubmittedError{Result: *rec.Result}
	}

	now := s.now()
	if rec.Deadline != nil && now.After(rec.Deadline.Add(s.grace)) {
		return domain.Result{}, fmt.Errorf("%w: deadline passed at %s", domain.ErrAttemptExpired, rec.Deadline.Format(time.RFC3339))
	}

	def, err := s.quizzes.GetDefinition(ctx, rec.QuizID)
	if err != nil {
		return domain.Result{}, err
	}
	keyed := make(map[string]domain.KeyedQuestion, len(def.Questions))
	for _, q := range def.Questions {
		keyed[q.ID] = q
	}
	byQuestion := make(map[string]domain.AnswerPayload, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	var earned, total, correctCount int
	perQuestion := make([]domain.QuestionResult, 0, len(rec.QuestionIDs))
	for _, qid := range rec.QuestionIDs {
		q, ok := keyed[qid]
		if !ok {
			return domain.Result{}, fmt.Errorf("quiz %q no longer contains question %q", rec.QuizID, qid)
		}
		points := q.Points
		if points == 0 {
			points = 1
		}
		total += points

		correct := isCorrect(q, byQuestion[qid])
		if correct {
			earned += points
			correctCount++
		}
		perQuestion = append(perQuestion, domain.QuestionResult{
			QuestionID:     qid,
			IsCorrect:      correct,
			CorrectIndexes: q.CorrectIndexes,
			Explanation:    q.Explanation,
		})
	}

	scorePercent := 0
	if total > 0 {
		scorePercent = int(math.Round(float64(earned) / float64(total) * 100))
	}
	result := domain.Result{
		AttemptID:        attemptID,
		ScorePercent:     scorePercent,
		Passed:           scorePercent >= def.Quiz.PassingScorePercent,
		CorrectCount:     correctCount,
		TotalQuestions:   len(rec.QuestionIDs),
		PerQuestion:      perQuestion,
		TimeSpentSeconds: int(now.Sub(rec.StartedAt).Seconds()),
	}

	rec.Result = &result
	if err := s.attempts.Save(ctx, rec); err != nil {
		return domain.Result{}, fmt.Errorf("save result: %w", err)
	}
	return result, nil
}

// isCorrect compares a payload entry against the answer key. An unanswered
// sentinel never earns credit; it is never coerced to option 0.
func isCorrect(q domain.KeyedQuestion, answer domain.AnswerPayload) bool {
	if answer.QuestionID == "" || answer.Unanswered {
		return false
	}
	switch q.Type {
	case domain.SingleChoice:
		return answer.SelectedIndex != nil &&
			len(q.CorrectIndexes) == 1 &&
			*answer.SelectedIndex == q.CorrectIndexes[0]
	case domain.MultipleSelect:
		if answer.SelectedIndexes == nil {
			return false
		}
		given := domain.IndexSet(answer.SelectedIndexes).Normalize()
		want := domain.IndexSet(q.CorrectIndexes).Normalize()
		return given.Equal(want)
	default:
		return false
	}
}
