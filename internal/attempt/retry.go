package attempt

import "quiz-attempt-engine/internal/domain"

// Decision tells the caller what a terminal result allows next.
type Decision int

const (
	// DecisionRetry means the attempt failed and a fresh attempt must be
	// started; local attempt state is discarded.
	DecisionRetry Decision = iota
	// DecisionContinue means the attempt passed; nothing is reset and the
	// result stays available for review until the caller navigates away.
	DecisionContinue
)

// Decide maps a terminal result to the next allowed action.
func Decide(result *domain.Result) Decision {
	if result != nil && result.Passed {
		return DecisionContinue
	}
	return DecisionRetry
}
