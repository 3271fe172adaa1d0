package attempt

import (
	"testing"

	"quiz-attempt-engine/internal/domain"
)

func TestDecide(t *testing.T) {
	if got := Decide(&domain.Result{Passed: false}); got != DecisionRetry {
		t.Fatalf("failed result must be retryable, got %v", got)
	}
	if got := Decide(&domain.Result{Passed: true}); got != DecisionContinue {
		t.Fatalf("passed result must continue, got %v", got)
	}
	if got := Decide(nil); got != DecisionRetry {
		t.Fatalf("missing result defaults to retry, got %v", got)
	}
}
