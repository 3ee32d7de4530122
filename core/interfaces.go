package core

import (
	"fmt"
	"sync/atomic"
	"time"
)

// =============================================================================
// Window: Render collaborator
// =============================================================================

// Window is the rendering collaborator. The frame-loop driver is the only
// caller of Flip and calls it at most once per frame; tasks never render
// directly, they only request a render through their returned Event.
type Window interface {
	// Flip presents the current frame's visual state.
	Flip()
}

// NopWindow is a Window that renders nothing. Useful for headless runs and
// tests where only the scheduling behavior matters.
type NopWindow struct{}

// Flip does nothing.
func (NopWindow) Flip() {}

// =============================================================================
// FrameTimer: Animation-frame timer collaborator
// =============================================================================

// FrameTimer schedules a single callback to run before the next frame.
// The driver calls RequestFrame exactly once per pass to re-arm itself.
//
// Implementations must invoke callbacks one at a time, never concurrently;
// the whole scheduler tree relies on every turn being a single synchronous
// call stack.
type FrameTimer interface {
	// RequestFrame registers callback to be invoked once, asynchronously,
	// before the next frame. A second call before the callback fires
	// replaces the pending callback.
	RequestFrame(callback func())
}

// =============================================================================
// Experiment: Experiment-ended flag collaborator
// =============================================================================

// Experiment exposes the experiment-ended flag. The scheduler only ever
// reads it, in one place: deciding whether a nested scheduler's QUIT falls
// through to the parent's queue or propagates the whole tree down.
type Experiment interface {
	// Ended reports whether the experiment has ended.
	Ended() bool
}

// NeverEnded is an Experiment that never ends. It is the default when no
// Experiment collaborator is configured, so nested-loop exhaustion always
// falls through to the parent.
type NeverEnded struct{}

// Ended always returns false.
func (NeverEnded) Ended() bool { return false }

// ExperimentFlag is a minimal Experiment implementation backed by an
// atomic bool. End may be called from any goroutine (an input listener, a
// quit dialog) and is observed by the scheduler on its next turn.
type ExperimentFlag struct {
	ended atomic.Bool
}

// End latches the flag.
func (f *ExperimentFlag) End() { f.ended.Store(true) }

// Ended reports whether End has been called.
func (f *ExperimentFlag) Ended() bool { return f.ended.Load() }

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called by the frame-loop driver when a task panics.
// The run algorithm itself never recovers; whether a panic is caught is the
// driver's decision, and it catches only when a handler is configured.
//
// Implementations should be thread-safe.
type PanicHandler interface {
	// HandlePanic is called after the driver recovers a panicking frame.
	//
	// Parameters:
	// - scheduler: The name of the scheduler whose frame panicked
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(scheduler string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(scheduler string, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Scheduler %s] Panic: %v\nStack trace:\n%s",
		scheduler, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduling metrics.
// Implementations can send metrics to monitoring systems (Prometheus,
// StatsD, etc.).
//
// Methods are called on the frame goroutine and must be non-blocking and
// fast; a slow metrics sink shows up directly as dropped frames.
type Metrics interface {
	// RecordTaskRun records one task invocation.
	//
	// Parameters:
	// - scheduler: The name of the scheduler that ran the task
	// - event: The effective event the scheduler applied to its queue
	// - duration: How long the invocation took
	RecordTaskRun(scheduler string, event Event, duration time.Duration)

	// RecordFlip records one render call and its duration.
	RecordFlip(duration time.Duration)

	// RecordFrameGap records the time between the starts of two
	// consecutive driver passes. Spikes here are dropped frames.
	RecordFrameGap(gap time.Duration)

	// RecordQueueDepth records the current queue depth of a scheduler.
	//
	// Parameters:
	// - scheduler: The name of the scheduler
	// - depth: The current number of queued entries
	RecordQueueDepth(scheduler string, depth int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskRun is a no-op.
func (m *NilMetrics) RecordTaskRun(scheduler string, event Event, duration time.Duration) {}

// RecordFlip is a no-op.
func (m *NilMetrics) RecordFlip(duration time.Duration) {}

// RecordFrameGap is a no-op.
func (m *NilMetrics) RecordFrameGap(gap time.Duration) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(scheduler string, depth int) {}

// =============================================================================
// SchedulerConfig: Configuration for Scheduler
// =============================================================================

// SchedulerConfig holds construction options for a root Scheduler.
// Window and FrameTimer are required before Start is called; everything
// else is optional and falls back to a default.
type SchedulerConfig struct {
	// Name identifies the scheduler in logs, metrics and stats.
	// Defaults to "root".
	Name string

	// Window is the render collaborator. Required by Start.
	Window Window

	// FrameTimer re-arms the driver between frames. Required by Start.
	FrameTimer FrameTimer

	// Experiment is the experiment-ended flag. Defaults to NeverEnded.
	Experiment Experiment

	// Logger receives lifecycle and debug logs. Defaults to DefaultLogger.
	Logger Logger

	// Metrics receives scheduling metrics. Defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler, when set, makes the driver recover task panics, report
	// them, and stop the scheduler. When nil (the default) a panic
	// propagates out of the frame callback unhandled.
	PanicHandler PanicHandler

	// HistoryCapacity is the size of the per-frame record ring buffer.
	// Defaults to DefaultHistoryCapacity.
	HistoryCapacity int
}

// DefaultSchedulerConfig returns a config with default collaborators. The
// caller still has to fill in Window and FrameTimer before Start.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Name:            "root",
		Experiment:      NeverEnded{},
		Logger:          NewDefaultLogger(),
		Metrics:         &NilMetrics{},
		HistoryCapacity: DefaultHistoryCapacity,
	}
}
