// Package clock provides an injectable time source so that request
// timestamps and tests stay deterministic.
package clock

import "time"

// Clock is the time source injected into the engine and lifecycle machine.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now, in UTC.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always reports the same instant.
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// Stepped is a clock that advances by a fixed step on every call.
// Useful for tests that need strictly increasing timestamps.
type Stepped struct {
	now  time.Time
	step time.Duration
}

// NewStepped returns a clock starting at t that advances by step per Now call.
func NewStepped(t time.Time, step time.Duration) *Stepped {
	return &Stepped{now: t.UTC(), step: step}
}

// Now returns the current instant and advances the clock.
func (s *Stepped) Now() time.Time {
	t := s.now
	s.now = s.now.Add(s.step)
	return t
}
