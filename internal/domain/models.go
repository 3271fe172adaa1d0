package domain

import "sort"

// QuestionType selects the grading semantics for a question.
type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleSelect QuestionType = "multiple_select"
)

// Difficulty is display-only metadata; it has no effect on grading.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Quiz is the immutable quiz header from the catalog. TimeLimitSeconds of 0
// means untimed.
type Quiz struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description,omitempty"`
	PassingScorePercent int    `json:"passingScorePercent"`
	TimeLimitSeconds    int    `json:"timeLimitSeconds,omitempty"`
	Shuffle             bool   `json:"shuffle,omitempty"`
	Active              bool   `json:"active"`
}

// Question is the graded content delivered per attempt. It never carries the
// answer key.
type Question struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Options    []string     `json:"options"`
	Type       QuestionType `json:"type"`
	Points     int          `json:"points"` // defaults to 1 if zero
	Difficulty Difficulty   `json:"difficulty,omitempty"`
}

// KeyedQuestion pairs a question with its answer key. It exists only on the
// grading-authority side; clients receive the embedded Question alone.
type KeyedQuestion struct {
	Question
	CorrectIndexes []int  `json:"correctIndexes"`
	Explanation    string `json:"explanation,omitempty"`
}

// QuizDefinition is the authority-side source of truth for one quiz.
type QuizDefinition struct {
	Quiz      Quiz            `json:"quiz"`
	Questions []KeyedQuestion `json:"questions"`
}

// Selection is the user's chosen option(s) for a question. The concrete
// variant must match the question's type.
type Selection interface {
	isSelection()
}

// SingleIndex is the selection for a single-choice question.
type SingleIndex int

func (SingleIndex) isSelection() {}

// IndexSet is the selection for a multiple-select question.
type IndexSet []int

func (IndexSet) isSelection() {}

// Normalize returns a sorted copy with duplicates collapsed.
func (s IndexSet) Normalize() IndexSet {
	seen := make(map[int]struct{}, len(s))
	out := make(IndexSet, 0, len(s))
	for _, idx := range s {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Equal reports set equality against another normalized index set.
func (s IndexSet) Equal(other IndexSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// AnswerPayload is one entry of a submission. Exactly one of SelectedIndex,
// SelectedIndexes, or Unanswered is populated; a missing answer is always an
// explicit sentinel, never a defaulted index.
type AnswerPayload struct {
	QuestionID      string `json:"questionId"`
	SelectedIndex   *int   `json:"selectedIndex,omitempty"`
	SelectedIndexes []int  `json:"selectedIndexes,omitempty"`
	Unanswered      bool   `json:"unanswered,omitempty"`
}

// AttemptSeed is what the grading authority returns when an attempt starts.
// The question order is fixed for the attempt's lifetime; if the quiz
// shuffles, the authority decides the order here, once.
type AttemptSeed struct {
	AttemptID           string     `json:"attemptId"`
	QuizID              string     `json:"quizId"`
	QuizTitle           string     `json:"quizTitle"`
	Questions           []Question `json:"questions"`
	TimeLimitSeconds    int        `json:"timeLimitSeconds,omitempty"`
	PassingScorePercent int        `json:"passingScorePercent"`
}

// QuestionResult is the authority's verdict for a single question.
type QuestionResult struct {
	QuestionID     string `json:"questionId"`
	IsCorrect      bool   `json:"isCorrect"`
	CorrectIndexes []int  `json:"correctIndexes"`
	Explanation    string `json:"explanation,omitempty"`
}

// Result is the authoritative grading outcome for one attempt. It is
// immutable once received; a retry supersedes it with a new attempt/result
// pair instead of mutating it.
type Result struct {
	AttemptID        string           `json:"attemptId"`
	ScorePercent     int              `json:"scorePercent"`
	Passed           bool             `json:"passed"`
	CorrectCount     int              `json:"correctCount"`
	TotalQuestions   int              `json:"totalQuestions"`
	PerQuestion      []QuestionResult `json:"perQuestion"`
	TimeSpentSeconds int              `json:"timeSpentSeconds"`
}
