package core

// =============================================================================
// Event: The vocabulary a task uses to talk back to its scheduler
// =============================================================================

// Event is the value a task returns to report its control decision.
// It is the only channel between a task and the scheduler that runs it;
// tasks never call scheduler methods to steer control flow.
type Event int

const (
	// EventNext: No rendering needed, keep draining the queue within the
	// same frame. Bookkeeping tasks return this so many of them can run
	// in a single frame without a visible flicker or a wasted render.
	EventNext Event = iota

	// EventFlipRepeat: Render now, then invoke the same task with the
	// same arguments on the next frame. The scheduler repeats a task
	// purely by not clearing its sticky slot, so a "wait until a timer
	// elapses, rendering while waiting" step is one stateful closure.
	EventFlipRepeat

	// EventFlipNext: Render now, then advance to the next queued task on
	// the next frame.
	EventFlipNext

	// EventQuit: This scheduler's run is entirely finished. An exhausted
	// queue yields the same value; callers treat both identically.
	EventQuit
)

// String returns the wire-friendly name of the event. The names lowercase
// cleanly into metric label values.
func (e Event) String() string {
	switch e {
	case EventNext:
		return "NEXT"
	case EventFlipRepeat:
		return "FLIP_REPEAT"
	case EventFlipNext:
		return "FLIP_NEXT"
	case EventQuit:
		return "QUIT"
	default:
		return "UNKNOWN"
	}
}

// =============================================================================
// Status: Scheduler lifecycle state
// =============================================================================

// Status reports whether a scheduler is actively driving frames.
type Status int

const (
	// StatusStopped: Not driving frames. The initial state, and the final
	// state once the scheduler has been told to stop or has exhausted all
	// tasks across all frames.
	StatusStopped Status = iota

	// StatusRunning: Actively draining tasks inside frame turns.
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "STOPPED"
	case StatusRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}
