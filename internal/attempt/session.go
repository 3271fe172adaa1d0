package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quiz-attempt-engine/internal/domain"
)

// Status is the session's lifecycle state. Transitions are monotonic per
// attempt: a retry allocates a brand-new attempt instead of re-entering
// in_progress.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusStarting   Status = "starting"
	StatusInProgress Status = "in_progress"
	StatusSubmitting Status = "submitting"
	StatusSubmitted  Status = "submitted"
	StatusExpired    Status = "expired"
)

var (
	// ErrSessionClosed is returned once the session has been torn down;
	// in-flight network outcomes arriving after that are dropped.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoAttempt is returned for operations that need a started attempt.
	ErrNoAttempt = errors.New("no attempt in progress")
	// ErrAttemptFinalized rejects answer writes racing with submission.
	ErrAttemptFinalized = errors.New("attempt is being finalized")
	// ErrRetryNotAllowed is returned when retry is called without a failed
	// result; passed attempts only support continuing onward.
	ErrRetryNotAllowed = errors.New("retry is only allowed after a failed result")
)

// GradingAuthority is the external system that owns question content and
// scoring. The session never computes pass/fail on its own.
type GradingAuthority interface {
	StartAttempt(ctx context.Context, quizID string) (domain.AttemptSeed, error)
	SubmitAttempt(ctx context.Context, attemptID string, answers []domain.AnswerPayload) (domain.Result, error)
}

// Callbacks are invoked outside the session lock; they may call back into
// the session.
type Callbacks struct {
	OnStatusChange func(Status)
	OnTick         func(remainingSeconds int)
}

type startFlight struct {
	done chan struct{}
	seed domain.AttemptSeed
	err  error
}

type submitFlight struct {
	done   chan struct{}
	result domain.Result
	err    error
}

// Session drives one quiz-taking session: it starts attempts against the
// grading authority, collects answers, watches the time limit, and owns the
// submit transition. All state changes are serialized behind one mutex, so a
// manual submit and a timer expiry can never both reach the wire.
type Session struct {
	quizID    string
	authority GradingAuthority
	clock     Clock
	callbacks Callbacks

	mu        sync.Mutex
	status    Status
	gen       int
	seed      domain.AttemptSeed
	startedAt time.Time
	answers   *AnswerStore
	timer     *TimeLimit
	index     int
	result    *domain.Result
	closed    bool

	starting   *startFlight
	submitting *submitFlight
	stopTicker func()
}

// NewSession creates a session for one quiz using the system clock.
func NewSession(quizID string, authority GradingAuthority, callbacks Callbacks) *Session {
	return NewSessionWithClock(quizID, authority, callbacks, SystemClock())
}

// NewSessionWithClock allows a deterministic clock in tests.
func NewSessionWithClock(quizID string, authority GradingAuthority, callbacks Callbacks, clock Clock) *Session {
	return &Session{
		quizID:    quizID,
		authority: authority,
		clock:     clock,
		callbacks: callbacks,
		status:    StatusIdle,
	}
}

// Start asks the authority for a new attempt and initializes the answer
// store and time limit. Concurrent calls while one is in flight coalesce
// onto the first call's outcome, so only one attempt is ever created. A
// failed start leaves the session idle and retryable.
func (s *Session) Start(ctx context.Context) (domain.AttemptSeed, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.AttemptSeed{}, ErrSessionClosed
	}
	switch s.status {
	case StatusStarting:
		f := s.starting
		s.mu.Unlock()
		<-f.done
		return f.seed, f.err
	case StatusIdle:
	default:
		st := s.status
		s.mu.Unlock()
		return domain.AttemptSeed{}, fmt.Errorf("start is not legal from %s", st)
	}

	gen := s.gen
	f := &startFlight{done: make(chan struct{})}
	s.starting = f
	notify := s.setStatusLocked(StatusStarting)
	s.mu.Unlock()
	notify()

	seed, err := s.authority.StartAttempt(ctx, s.quizID)

	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		f.err = ErrSessionClosed
		close(f.done)
		return domain.AttemptSeed{}, ErrSessionClosed
	}
	if err != nil {
		s.starting = nil
		notify := s.setStatusLocked(StatusIdle)
		s.mu.Unlock()
		f.err = err
		close(f.done)
		notify()
		return domain.AttemptSeed{}, err
	}

	s.seed = seed
	s.startedAt = s.clock.Now()
	s.answers = NewAnswerStore(seed.Questions)
	s.timer = NewTimeLimit(s.startedAt, seed.TimeLimitSeconds)
	s.index = 0
	s.result = nil
	s.starting = nil
	if s.timer != nil {
		ticks, stop := s.clock.Ticker(time.Second)
		s.stopTicker = stop
		go s.watchTicks(ticks, gen)
	}
	notify = s.setStatusLocked(StatusInProgress)
	s.mu.Unlock()
	f.seed = seed
	close(f.done)
	notify()
	return seed, nil
}

// SelectAnswer records a selection for a question. It is only legal while
// the attempt is in progress, so a last click racing with auto-submit cannot
// mutate an attempt already being finalized.
func (s *Session) SelectAnswer(questionID string, sel domain.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.status != StatusInProgress {
		return ErrAttemptFinalized
	}
	return s.answers.Write(questionID, sel)
}

// GoTo moves to the question at index, clamped to the question range.
func (s *Session) GoTo(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.seed.Questions)
	if total == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index > total-1 {
		index = total - 1
	}
	s.index = index
}

// Next advances to the following question, clamping at the end.
func (s *Session) Next() {
	s.mu.Lock()
	index := s.index + 1
	s.mu.Unlock()
	s.GoTo(index)
}

// Previous moves back one question, clamping at the start.
func (s *Session) Previous() {
	s.mu.Lock()
	index := s.index - 1
	s.mu.Unlock()
	s.GoTo(index)
}

// Submit sends the attempt's answers for authoritative grading. It is
// idempotent under concurrent invocation: whichever trigger reaches the
// serialized dispatch point first issues the single network call, and any
// later caller observes that call's outcome. A transport failure restores
// the status the session had before the call.
func (s *Session) Submit(ctx context.Context) (domain.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Result{}, ErrSessionClosed
	}
	switch s.status {
	case StatusSubmitted:
		res := *s.result
		s.mu.Unlock()
		return res, nil
	case StatusSubmitting:
		f := s.submitting
		s.mu.Unlock()
		<-f.done
		return f.result, f.err
	case StatusInProgress, StatusExpired:
	default:
		s.mu.Unlock()
		return domain.Result{}, ErrNoAttempt
	}

	prev := s.status
	gen := s.gen
	attemptID := s.seed.AttemptID
	payload := s.answers.Payload(s.seed.Questions)
	f := &submitFlight{done: make(chan struct{})}
	s.submitting = f
	notify := s.setStatusLocked(StatusSubmitting)
	s.mu.Unlock()
	notify()

	result, err := s.authority.SubmitAttempt(ctx, attemptID, payload)
	var already *domain.AlreadySubmittedError
	if err != nil && errors.As(err, &already) {
		// The authority graded this attempt before our call landed; its
		// stored result is the outcome.
		result, err = already.Result, nil
	}

	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		f.err = ErrSessionClosed
		close(f.done)
		return domain.Result{}, ErrSessionClosed
	}
	if err != nil {
		s.submitting = nil
		notify := s.setStatusLocked(prev)
		s.mu.Unlock()
		f.err = err
		close(f.done)
		notify()
		return domain.Result{}, err
	}

	s.result = &result
	s.submitting = nil
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
	notify = s.setStatusLocked(StatusSubmitted)
	s.mu.Unlock()
	f.result = result
	close(f.done)
	notify()
	return result, nil
}

// Retry discards the failed attempt's local state and starts a brand-new
// attempt with a fresh token and empty answers. It is rejected unless the
// session holds a failed result.
func (s *Session) Retry(ctx context.Context) (domain.AttemptSeed, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.AttemptSeed{}, ErrSessionClosed
	}
	if s.status != StatusSubmitted || s.result == nil || Decide(s.result) != DecisionRetry {
		s.mu.Unlock()
		return domain.AttemptSeed{}, ErrRetryNotAllowed
	}
	s.gen++
	s.seed = domain.AttemptSeed{}
	s.answers = nil
	s.timer = nil
	s.result = nil
	s.index = 0
	notify := s.setStatusLocked(StatusIdle)
	s.mu.Unlock()
	notify()
	return s.Start(ctx)
}

// Close tears the session down. In-flight network calls are not canceled at
// the protocol level, but their outcomes are dropped so no stale callback
// can mutate a superseded attempt.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Seed returns the started attempt's metadata.
func (s *Session) Seed() domain.AttemptSeed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed
}

// CurrentIndex returns the cursor position within the question set.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// TotalQuestions returns the attempt's question count.
func (s *Session) TotalQuestions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seed.Questions)
}

// CurrentQuestion returns the question under the cursor, if an attempt has
// started.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < 0 || s.index >= len(s.seed.Questions) {
		return domain.Question{}, false
	}
	return s.seed.Questions[s.index], true
}

// Answer returns the recorded selection for a question, if any.
func (s *Session) Answer(questionID string) (domain.Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answers == nil {
		return nil, false
	}
	return s.answers.Get(questionID)
}

// RemainingSeconds reports the countdown for timed attempts; ok is false for
// untimed attempts or before a start.
func (s *Session) RemainingSeconds() (remaining int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return 0, false
	}
	return s.timer.Remaining(s.clock.Now()), true
}

// Result returns a copy of the grading outcome once submitted.
func (s *Session) Result() *domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	res := *s.result
	return &res
}

// Review reconciles the result with the locally held answers into the
// per-question review view. It is only available once submitted.
func (s *Session) Review() ([]QuestionReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusSubmitted || s.result == nil {
		return nil, ErrNoAttempt
	}
	return Reconcile(s.seed.Questions, s.answers, s.result)
}

// watchTicks runs on its own goroutine for the lifetime of one timed
// attempt. The transition logic itself always executes under the session
// lock, so a tick and a manual submit serialize against each other.
func (s *Session) watchTicks(ticks <-chan time.Time, gen int) {
	for range ticks {
		if !s.handleTick(gen) {
			return
		}
	}
}

func (s *Session) handleTick(gen int) bool {
	s.mu.Lock()
	if s.closed || s.gen != gen || s.timer == nil || s.status == StatusSubmitted {
		s.mu.Unlock()
		return false
	}
	if s.status != StatusInProgress {
		// A submission is in flight; keep the ticker alive in case it
		// fails and the attempt returns to in_progress.
		s.mu.Unlock()
		return true
	}
	remaining, expired := s.timer.Advance(s.clock.Now())
	tick := s.callbacks.OnTick
	var notify func()
	if expired {
		notify = s.setStatusLocked(StatusExpired)
	}
	s.mu.Unlock()

	if tick != nil {
		tick(remaining)
	}
	if !expired {
		return true
	}
	notify()
	// Forced submission: the timer only signals; the session owns the
	// expired -> submitting transition and the single wire call.
	_, _ = s.Submit(context.Background())
	return false
}

// setStatusLocked updates status and returns the notification to run after
// the lock is released.
func (s *Session) setStatusLocked(st Status) func() {
	s.status = st
	cb := s.callbacks.OnStatusChange
	if cb == nil {
		return func() {}
	}
	return func() { cb(st) }
}
