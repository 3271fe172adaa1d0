package attempt

import (
	"fmt"

	"quiz-attempt-engine/internal/domain"
)

// ReviewState is the tri-state display value for one reviewed question.
type ReviewState string

const (
	ReviewCorrect     ReviewState = "correct"
	ReviewIncorrect   ReviewState = "incorrect"
	ReviewNotAnswered ReviewState = "not_answered"
)

// QuestionReview merges the authority's verdict for one question with the
// selection the user actually made.
type QuestionReview struct {
	Question        domain.Question  `json:"question"`
	State           ReviewState      `json:"state"`
	UserSelection   domain.Selection `json:"-"`
	SelectedIndex   *int             `json:"selectedIndex,omitempty"`
	SelectedIndexes []int            `json:"selectedIndexes,omitempty"`
	CorrectIndexes  []int            `json:"correctIndexes"`
	Explanation     string           `json:"explanation,omitempty"`
}

// Reconcile builds the per-question review in attempt order. Verdicts are
// looked up by question id, so a server-shuffled result order does not
// matter. Correctness is never recomputed locally; the client holds no
// answer key before the result arrives, and this only relays what the
// authority returned.
func Reconcile(questions []domain.Question, answers *AnswerStore, result *domain.Result) ([]QuestionReview, error) {
	if result == nil {
		return nil, fmt.Errorf("reconcile: no result")
	}
	verdicts := make(map[string]domain.QuestionResult, len(result.PerQuestion))
	for _, v := range result.PerQuestion {
		verdicts[v.QuestionID] = v
	}

	reviews := make([]QuestionReview, 0, len(questions))
	for _, q := range questions {
		verdict, ok := verdicts[q.ID]
		if !ok {
			return nil, fmt.Errorf("reconcile: result is missing a verdict for question %q", q.ID)
		}
		review := QuestionReview{
			Question:       q,
			CorrectIndexes: verdict.CorrectIndexes,
			Explanation:    verdict.Explanation,
		}
		sel, answered := answers.Get(q.ID)
		switch {
		case verdict.IsCorrect:
			review.State = ReviewCorrect
		case answered:
			review.State = ReviewIncorrect
		default:
			review.State = ReviewNotAnswered
		}
		if answered {
			review.UserSelection = sel
			switch v := sel.(type) {
			case domain.SingleIndex:
				idx := int(v)
				review.SelectedIndex = &idx
			case domain.IndexSet:
				review.SelectedIndexes = v
			}
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}
