// Package clock provides the timing primitives experiment tasks poll
// between frames: a monotonic stopwatch, a resettable clock, and a
// countdown timer.
//
// The scheduler retains no per-task memory across frames, so a task that
// waits for time to pass captures one of these in its closure and checks
// it on every invocation:
//
//	timer := clock.NewCountdown(2 * time.Second)
//	task := core.TaskFunc(func(args ...any) core.Event {
//		if timer.Expired() {
//			return core.EventNext
//		}
//		return core.EventFlipRepeat
//	})
//
// None of the types are safe for concurrent use; they are meant to live on
// the frame goroutine with the tasks that own them.
package clock

import "time"

// Source provides the current time. The default is time.Now; tests inject
// a fake to step time deterministically.
type Source func() time.Time

// =============================================================================
// Monotonic: Elapsed time since construction
// =============================================================================

// Monotonic measures elapsed time from the moment it was created. It
// cannot be reset; use Clock for a resettable stopwatch.
type Monotonic struct {
	source Source
	start  time.Time
}

// NewMonotonic creates a Monotonic backed by time.Now.
func NewMonotonic() *Monotonic {
	return NewMonotonicSource(nil)
}

// NewMonotonicSource creates a Monotonic backed by the given source.
// A nil source falls back to time.Now.
func NewMonotonicSource(source Source) *Monotonic {
	if source == nil {
		source = time.Now
	}
	return &Monotonic{source: source, start: source()}
}

// Elapsed returns the time passed since construction.
func (c *Monotonic) Elapsed() time.Duration {
	return c.source().Sub(c.start)
}

// =============================================================================
// Clock: Resettable stopwatch
// =============================================================================

// Clock is a resettable stopwatch. A fresh Clock reads zero.
type Clock struct {
	source Source
	start  time.Time
}

// New creates a Clock backed by time.Now.
func New() *Clock {
	return NewSource(nil)
}

// NewSource creates a Clock backed by the given source. A nil source
// falls back to time.Now.
func NewSource(source Source) *Clock {
	if source == nil {
		source = time.Now
	}
	return &Clock{source: source, start: source()}
}

// Elapsed returns the time passed since the last reset.
func (c *Clock) Elapsed() time.Duration {
	return c.source().Sub(c.start)
}

// Reset rewinds the clock to zero.
func (c *Clock) Reset() {
	c.start = c.source()
}

// ResetTo rewinds the clock so that it reads offset right now. Routine
// code uses this to pretend a step started slightly in the past, for
// example at the previous frame's flip.
func (c *Clock) ResetTo(offset time.Duration) {
	c.start = c.source().Add(-offset)
}

// =============================================================================
// Countdown: Timer that runs down to zero
// =============================================================================

// Countdown runs from a duration down to zero. Remaining keeps counting
// below zero after expiry, mirroring how long past the deadline the
// current frame is.
type Countdown struct {
	clock    *Clock
	duration time.Duration
}

// NewCountdown creates a Countdown of the given duration backed by
// time.Now. The countdown starts immediately.
func NewCountdown(duration time.Duration) *Countdown {
	return NewCountdownSource(duration, nil)
}

// NewCountdownSource creates a Countdown backed by the given source.
// A nil source falls back to time.Now.
func NewCountdownSource(duration time.Duration, source Source) *Countdown {
	return &Countdown{clock: NewSource(source), duration: duration}
}

// Remaining returns the time left; negative once expired.
func (c *Countdown) Remaining() time.Duration {
	return c.duration - c.clock.Elapsed()
}

// Expired reports whether the countdown has run out.
func (c *Countdown) Expired() bool {
	return c.Remaining() <= 0
}

// Reset restarts the countdown with its original duration.
func (c *Countdown) Reset() {
	c.clock.Reset()
}

// ResetTo restarts the countdown with a new duration.
func (c *Countdown) ResetTo(duration time.Duration) {
	c.duration = duration
	c.clock.Reset()
}
