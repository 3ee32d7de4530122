package core

// =============================================================================
// Task: The unit of schedulable work (tagged union)
// =============================================================================

// Task is a step of experiment logic. Exactly two variants exist:
//
//   - TaskFunc: a callable invoked synchronously with its bound arguments,
//     returning an Event.
//   - *Scheduler: a nested scheduler, treated opaquely by its parent. The
//     parent only runs one turn of it per pop and interprets the returned
//     Event.
//
// The interface is sealed by an unexported method so the per-frame run
// algorithm can switch over the variants exhaustively. Code outside this
// package cannot add a third variant.
type Task interface {
	isTask()
}

// TaskFunc is the callable task variant. The args are the arguments bound
// at Add time, passed verbatim on every invocation; the scheduler never
// mutates them. A task that needs progress state across frames captures it
// in its closure (for example a start-time snapshot) and returns
// EventFlipRepeat until done.
type TaskFunc func(args ...any) Event

func (TaskFunc) isTask() {}

// taskEntry pairs a task with its bound arguments. Insertion order in the
// queue is preserved; this is the sole ordering guarantee.
type taskEntry struct {
	task Task
	args []any
}
