// Package framescheduler provides a cooperative, frame-synchronized task
// scheduler for experiments that present stimuli frame by frame.
//
// Tasks are closures queued on a Scheduler. Once per animation frame the
// scheduler drains its queue until a task asks for a render, running
// everything as one synchronous call stack on the frame goroutine. A task
// reports its control decision by returning an Event instead of calling
// back into the scheduler.
//
// # Quick Start
//
// Create a scheduler on a fixed-rate timer and queue work:
//
//	timer := frametimer.NewFixedRate(nil) // 60 fps
//	defer timer.Stop()
//
//	sched := framescheduler.NewScheduler(&framescheduler.SchedulerConfig{
//		Window:     window,
//		FrameTimer: timer,
//	})
//	sched.Add(framescheduler.TaskFunc(func(args ...any) framescheduler.Event {
//		drawFixation()
//		return framescheduler.EventFlipNext
//	}))
//	sched.Start()
//	sched.WaitStopped(context.Background())
//
// # Key Concepts
//
// Event: the vocabulary a task uses to talk back to its scheduler.
// EventNext keeps the frame going without a render, EventFlipRepeat
// renders and runs the same task again next frame, EventFlipNext renders
// and advances, and EventQuit finishes the scheduler.
//
// Nested schedulers: a Scheduler is itself a Task, so loop constructs are
// sub-schedulers added to a parent's queue. When a nested scheduler's
// queue is exhausted its quit falls through to the parent's queue, unless
// the Experiment collaborator reports the experiment has ended.
//
// Collaborators: rendering (Window), frame pacing (FrameTimer), the
// experiment-ended flag (Experiment), logging, metrics and panic handling
// are injected interfaces with working defaults, so headless runs and
// tests need no stubbing beyond a manual timer.
//
// # Subpackages
//
// The experiment toolkit builds on this core: clock (monotonic stopwatch
// and countdown timers), frametimer (fixed-rate and manual frame pacing),
// trial (condition sequencing, loops, staircases), resource (stimulus
// prefetching and gating), data (trial data collection, CSV and MongoDB
// stores), timeline (HCL experiment definitions compiled to scheduler
// trees) and observability (Prometheus and zap adapters).
//
// For more details, see https://github.com/perceptlab/go-frame-scheduler
package framescheduler
