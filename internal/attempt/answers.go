package attempt

import (
	"fmt"

	"quiz-attempt-engine/internal/domain"
)

// AnswerStore holds the user's current selections for one attempt. Writes
// replace prior selections and are validated against the question's declared
// type; keys outside the attempt's question set are rejected.
type AnswerStore struct {
	byID       map[string]domain.Question
	selections map[string]domain.Selection
}

// NewAnswerStore builds an empty store scoped to the attempt's question set.
func NewAnswerStore(questions []domain.Question) *AnswerStore {
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &AnswerStore{
		byID:       byID,
		selections: make(map[string]domain.Selection, len(questions)),
	}
}

// Write records a selection, replacing any prior one for the question.
func (s *AnswerStore) Write(questionID string, sel domain.Selection) error {
	q, ok := s.byID[questionID]
	if !ok {
		return fmt.Errorf("%w: question %q is not part of this attempt", domain.ErrValidation, questionID)
	}

	switch v := sel.(type) {
	case domain.SingleIndex:
		if q.Type != domain.SingleChoice {
			return fmt.Errorf("%w: question %q expects a multiple-select answer", domain.ErrValidation, questionID)
		}
		if int(v) < 0 || int(v) >= len(q.Options) {
			return fmt.Errorf("%w: index %d out of range for question %q", domain.ErrValidation, int(v), questionID)
		}
		s.selections[questionID] = v
	case domain.IndexSet:
		if q.Type != domain.MultipleSelect {
			return fmt.Errorf("%w: question %q expects a single-choice answer", domain.ErrValidation, questionID)
		}
		normalized := v.Normalize()
		for _, idx := range normalized {
			if idx < 0 || idx >= len(q.Options) {
				return fmt.Errorf("%w: index %d out of range for question %q", domain.ErrValidation, idx, questionID)
			}
		}
		s.selections[questionID] = normalized
	default:
		return fmt.Errorf("%w: unsupported selection variant %T", domain.ErrValidation, sel)
	}
	return nil
}

// Get returns the current selection for a question, if any.
func (s *AnswerStore) Get(questionID string) (domain.Selection, bool) {
	sel, ok := s.selections[questionID]
	return sel, ok
}

// Answered reports how many questions currently have a selection.
func (s *AnswerStore) Answered() int { return len(s.selections) }

// Payload materializes the submission for the given question order. Every
// question yields exactly one entry; questions without a selection carry the
// explicit unanswered sentinel.
func (s *AnswerStore) Payload(questions []domain.Question) []domain.AnswerPayload {
	payload := make([]domain.AnswerPayload, 0, len(questions))
	for _, q := range questions {
		entry := domain.AnswerPayload{QuestionID: q.ID}
		switch sel := s.selections[q.ID].(type) {
		case domain.SingleIndex:
			idx := int(sel)
			entry.SelectedIndex = &idx
		case domain.IndexSet:
			if len(sel) == 0 {
				// An explicitly cleared multi-select carries the same
				// sentinel as a question never touched.
				entry.Unanswered = true
			} else {
				entry.SelectedIndexes = sel
			}
		default:
			entry.Unanswered = true
		}
		payload = append(payload, entry)
	}
	return payload
}
