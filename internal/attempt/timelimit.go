package attempt

import (
	"math"
	"time"
)

// TimeLimit derives a deadline from the attempt's start instant and produces
// remaining-time values plus a single-shot expiry signal. A nil *TimeLimit
// means the attempt is untimed: it never ticks and never expires.
type TimeLimit struct {
	deadline time.Time
	expired  bool
}

// NewTimeLimit returns the controller for a timed attempt, or nil when
// limitSeconds is zero or negative.
func NewTimeLimit(startedAt time.Time, limitSeconds int) *TimeLimit {
	if limitSeconds <= 0 {
		return nil
	}
	return &TimeLimit{deadline: startedAt.Add(time.Duration(limitSeconds) * time.Second)}
}

// Deadline returns the fixed expiry instant.
func (t *TimeLimit) Deadline() time.Time { return t.deadline }

// Remaining returns whole seconds left until the deadline, rounded up and
// clamped at zero. Ceiling keeps the displayed countdown from reaching 0
// while a fraction of a second is still available.
func (t *TimeLimit) Remaining(now time.Time) int {
	left := t.deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Advance observes a tick. The expired flag is true exactly once, on the
// first tick where remaining reaches zero; the caller owns whatever happens
// next.
func (t *TimeLimit) Advance(now time.Time) (remaining int, expired bool) {
	remaining = t.Remaining(now)
	if remaining > 0 || t.expired {
		return remaining, false
	}
	t.expired = true
	return 0, true
}
