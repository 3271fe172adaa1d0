package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizUnavailable is returned when the quiz is unknown or inactive.
	ErrQuizUnavailable = errors.New("quiz unavailable")
	// ErrNotAuthorized is returned when the caller lacks access to the quiz.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrAttemptNotFound indicates an unknown or evicted attempt token.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptExpired is returned when a submission arrives past the
	// server-side deadline grace window.
	ErrAttemptExpired = errors.New("attempt expired by server")
	// ErrValidation marks an answer write rejected for a type or range
	// mismatch. Reaching a real caller means the presentation layer ignored
	// the question's declared type.
	ErrValidation = errors.New("validation failed")
)

// NetworkError wraps a transport failure on a start or submit call. It is
// retryable: the session state it interrupted is left unchanged.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AlreadySubmittedError carries the stored Result for an attempt that was
// graded before this submission arrived. Callers treat it as
// success-equivalent and reconcile to the attached result.
type AlreadySubmittedError struct {
	Result Result
}

func (e *AlreadySubmittedError) Error() string {
	return fmt.Sprintf("attempt %s already submitted", e.Result.AttemptID)
}
