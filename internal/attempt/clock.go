package attempt

import "time"

// Clock supplies monotonic now and tick sources so the session can run
// against a fake clock in tests instead of real timers.
type Clock interface {
	Now() time.Time
	// Ticker returns a channel that delivers ticks at the given cadence and
	// a stop function releasing the underlying resources.
	Ticker(d time.Duration) (<-chan time.Time, func())
}

type systemClock struct{}

// SystemClock returns the wall-clock implementation backed by time.NewTicker.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Ticker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
