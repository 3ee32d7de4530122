package core

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// Scheduler: Cooperative, frame-synchronized task scheduler
// =============================================================================

// Scheduler sequences tasks against the host's rendering cadence. It owns
// an ordered FIFO queue of (task, args) entries, drains them one frame
// "turn" at a time, interprets the Event each task returns, and recurses
// into nested schedulers that represent loop constructs.
//
// A Scheduler is itself a Task, so arbitrarily deep trees of loops are
// built by adding schedulers to schedulers. Only the root of a tree is
// ever started; sub-schedulers are run by their parent.
//
// All task execution happens on the frame goroutine as one synchronous
// call stack per frame. Add and Stop may be called from any goroutine.
type Scheduler struct {
	name  string
	queue *entryQueue

	// Sticky slot: at most one in-flight task retained for repetition.
	// Touched only on the frame goroutine.
	current     Task
	currentArgs []any

	status           atomic.Int32
	stopAtNextTask   atomic.Bool
	stopAtNextUpdate atomic.Bool
	sticky           atomic.Bool

	// Collaborators, shared by every sub-scheduler in the tree.
	window       Window
	frameTimer   FrameTimer
	experiment   Experiment
	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler

	tasksRun      atomic.Int64
	framesFlipped atomic.Int64
	subSeq        atomic.Int64

	// Driver state, used only on the scheduler that Start is called on.
	started     atomic.Bool
	historyCap  int
	history     *frameHistory
	frameSeq    int64     // frame goroutine only
	lastFrameAt time.Time // frame goroutine only
	stopped     chan struct{}
	stopOnce    sync.Once
}

// A Scheduler nested inside another scheduler's queue is the sub-scheduler
// task variant.
func (*Scheduler) isTask() {}

// NewScheduler creates a root scheduler. A nil config or missing optional
// fields fall back to defaults; Window and FrameTimer stay nil until Start
// requires them.
func NewScheduler(config *SchedulerConfig) *Scheduler {
	s := &Scheduler{
		queue:   newEntryQueue(),
		stopped: make(chan struct{}),
	}

	// Apply config
	if config != nil {
		s.name = config.Name
		s.window = config.Window
		s.frameTimer = config.FrameTimer
		s.experiment = config.Experiment
		s.logger = config.Logger
		s.metrics = config.Metrics
		s.panicHandler = config.PanicHandler
		s.historyCap = config.HistoryCapacity
	}

	// Use defaults if not provided
	if s.name == "" {
		s.name = "root"
	}
	if s.experiment == nil {
		s.experiment = NeverEnded{}
	}
	if s.logger == nil {
		s.logger = NewDefaultLogger()
	}
	if s.metrics == nil {
		s.metrics = &NilMetrics{}
	}
	if s.historyCap <= 0 {
		s.historyCap = DefaultHistoryCapacity
	}

	return s
}

// NewSub creates a nested scheduler sharing this scheduler's collaborators.
// Loop constructs and conditional branches are built on sub-schedulers; add
// the result to a queue like any other task. An empty name is replaced with
// a generated one.
func (s *Scheduler) NewSub(name string) *Scheduler {
	if name == "" {
		name = fmt.Sprintf("%s/sub%d", s.name, s.subSeq.Add(1))
	}
	return &Scheduler{
		name:         name,
		queue:        newEntryQueue(),
		window:       s.window,
		frameTimer:   s.frameTimer,
		experiment:   s.experiment,
		logger:       s.logger,
		metrics:      s.metrics,
		panicHandler: s.panicHandler,
		historyCap:   s.historyCap,
		stopped:      make(chan struct{}),
	}
}

// Name returns the scheduler's name.
func (s *Scheduler) Name() string {
	return s.name
}

// Status returns the current lifecycle status.
func (s *Scheduler) Status() Status {
	return Status(s.status.Load())
}

// QueuedTaskCount returns the number of entries waiting in the queue.
// The sticky task, if any, is not counted.
func (s *Scheduler) QueuedTaskCount() int {
	return s.queue.len()
}

// Add appends (task, args) to the queue. Safe to call at any time,
// including from within a running task; a task may enqueue further work
// for its own scheduler mid-turn and it will run within the same frame.
// Panics if task is nil.
func (s *Scheduler) Add(task Task, args ...any) {
	if task == nil {
		panic("framescheduler: Add called with a nil Task")
	}
	depth := s.queue.push(taskEntry{task: task, args: args})
	s.metrics.RecordQueueDepth(s.name, depth)
	s.logger.Debug("task queued",
		F("scheduler", s.name),
		F("depth", depth))
}

// AddConditional enqueues a single synthetic task that evaluates condition
// once at run time and adds exactly one of whenTrue / whenFalse into this
// scheduler's queue. The synthetic task returns EventNext, so choosing a
// branch never forces a render by itself and the chosen branch starts
// within the same frame.
func (s *Scheduler) AddConditional(condition func() bool, whenTrue, whenFalse *Scheduler) {
	if condition == nil {
		panic("framescheduler: AddConditional called with a nil condition")
	}
	if whenTrue == nil || whenFalse == nil {
		panic("framescheduler: AddConditional called with a nil branch scheduler")
	}
	s.Add(TaskFunc(func(args ...any) Event {
		if condition() {
			s.Add(whenTrue)
		} else {
			s.Add(whenFalse)
		}
		return EventNext
	}))
}

// Stop requests the scheduler to stop. The status flips to StatusStopped
// immediately; the effect on execution is observed at the next
// queue-advance boundary and at the next frame boundary. A task already
// executing is never interrupted.
func (s *Scheduler) Stop() {
	s.status.Store(int32(StatusStopped))
	s.stopAtNextTask.Store(true)
	s.stopAtNextUpdate.Store(true)
	s.stopOnce.Do(func() { close(s.stopped) })
	s.logger.Info("stop requested", F("scheduler", s.name))
}

// runNextTasks runs one turn: it drains the queue until a task signals
// that a render is due (EventFlipRepeat, EventFlipNext) or this scheduler
// is finished (EventQuit). EventNext keeps the turn going.
//
// Invoked once per frame on a started scheduler and recursively on nested
// schedulers when they surface as the parent's current task. Panics from
// tasks are not recovered here.
func (s *Scheduler) runNextTasks() Event {
	state := EventNext
	for {
		if s.stopAtNextTask.Load() {
			return EventQuit
		}

		if s.current == nil {
			entry, ok := s.queue.pop()
			if !ok {
				// Queue exhausted: same as a task answering QUIT.
				return EventQuit
			}
			s.current = entry.task
			s.currentArgs = entry.args
			s.metrics.RecordQueueDepth(s.name, s.queue.len())
		}

		started := time.Now()
		switch task := s.current.(type) {
		case TaskFunc:
			state = task(s.currentArgs...)
		case *Scheduler:
			state = task.runNextTasks()
			if state == EventQuit && !s.experiment.Ended() {
				// The nested scheduler is exhausted but the experiment
				// goes on: fall through to this scheduler's own queue.
				state = EventNext
			}
		default:
			panic(fmt.Sprintf("framescheduler: task %T does not conform to the Task contract", s.current))
		}
		s.tasksRun.Add(1)
		s.metrics.RecordTaskRun(s.name, state, time.Since(started))

		if state != EventFlipRepeat {
			// Drop stickiness; the next iteration pops a fresh entry.
			s.current = nil
			s.currentArgs = nil
			s.sticky.Store(false)
		} else {
			s.sticky.Store(true)
		}

		if state == EventNext {
			continue
		}
		return state
	}
}
