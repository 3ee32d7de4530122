package trial

import "github.com/perceptlab/go-frame-scheduler/core"

// HandlerFactory builds a fresh Handler for one entry into a loop. A
// factory rather than a Handler instance, because a loop nested inside
// another runs once per outer trial and needs a new sequence each time.
type HandlerFactory func() *Handler

// Routine adds the tasks for a single trial to the loop's scheduler.
// It runs inside the loop-begin task, so every Add lands before the loop
// scheduler itself starts draining.
type Routine func(loop *core.Scheduler, t Trial)

// LoopBegin returns the task that populates loop: it builds a Handler from
// factory and invokes routine once per trial, in sequence order. The task
// returns EventNext, so population never forces a render and the loop's
// first trial starts within the same frame.
func LoopBegin(loop *core.Scheduler, factory HandlerFactory, routine Routine) core.TaskFunc {
	if loop == nil {
		panic("trial: LoopBegin called with a nil loop scheduler")
	}
	if factory == nil {
		panic("trial: LoopBegin called with a nil handler factory")
	}
	if routine == nil {
		panic("trial: LoopBegin called with a nil routine")
	}
	return func(args ...any) core.Event {
		handler := factory()
		for {
			t, ok := handler.Next()
			if !ok {
				break
			}
			routine(loop, t)
		}
		return core.EventNext
	}
}

// LoopEnd returns the task scheduled after a loop's sub-scheduler. It runs
// once the loop is exhausted, invokes onDone if non-nil (typically data
// bookkeeping), and continues without rendering.
func LoopEnd(onDone func()) core.TaskFunc {
	return func(args ...any) core.Event {
		if onDone != nil {
			onDone()
		}
		return core.EventNext
	}
}

// Schedule wires a complete loop into parent: a begin task that populates
// a fresh sub-scheduler, the sub-scheduler itself, and an end task. The
// loop's sub-scheduler is returned so callers can name it in logs or nest
// further loops inside routine.
//
// Parameters:
//   - parent: scheduler the loop is appended to
//   - name: sub-scheduler name; empty picks a generated one
//   - factory: builds the loop's Handler at run time
//   - routine: adds each trial's tasks to the loop scheduler
//   - onDone: optional hook run after the loop is exhausted
func Schedule(parent *core.Scheduler, name string, factory HandlerFactory, routine Routine, onDone func()) *core.Scheduler {
	if parent == nil {
		panic("trial: Schedule called with a nil parent scheduler")
	}
	loop := parent.NewSub(name)
	parent.Add(LoopBegin(loop, factory, routine))
	parent.Add(loop)
	parent.Add(LoopEnd(onDone))
	return loop
}
