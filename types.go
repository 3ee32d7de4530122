package framescheduler

import "github.com/perceptlab/go-frame-scheduler/core"

// Re-export commonly used types from the core package for convenience.
// This allows users to import only the framescheduler package for most
// use cases.

// Task is a queue entry: either a TaskFunc or a nested *Scheduler.
type Task = core.Task

// TaskFunc is the closure form of a task.
type TaskFunc = core.TaskFunc

// Event is the control decision a task returns to its scheduler.
type Event = core.Event

// Status is a scheduler's lifecycle state.
type Status = core.Status

// Scheduler sequences tasks against the host's rendering cadence.
type Scheduler = core.Scheduler

// SchedulerConfig holds construction options for a root Scheduler.
type SchedulerConfig = core.SchedulerConfig

// SchedulerStats is a point-in-time observability snapshot.
type SchedulerStats = core.SchedulerStats

// FrameRecord captures one completed driver pass.
type FrameRecord = core.FrameRecord

// Window is the render collaborator.
type Window = core.Window

// NopWindow is a Window that renders nothing.
type NopWindow = core.NopWindow

// FrameTimer schedules driver passes before upcoming frames.
type FrameTimer = core.FrameTimer

// Experiment exposes the experiment-ended flag.
type Experiment = core.Experiment

// NeverEnded is an Experiment that never ends.
type NeverEnded = core.NeverEnded

// ExperimentFlag is an atomic-bool Experiment implementation.
type ExperimentFlag = core.ExperimentFlag

// Logger is the structured logging port.
type Logger = core.Logger

// Field is one structured logging key-value pair.
type Field = core.Field

// Metrics is the scheduling metrics port.
type Metrics = core.Metrics

// PanicHandler reports recovered task panics.
type PanicHandler = core.PanicHandler

// Event constants
const (
	EventNext       Event = core.EventNext
	EventFlipRepeat Event = core.EventFlipRepeat
	EventFlipNext   Event = core.EventFlipNext
	EventQuit       Event = core.EventQuit
)

// Status constants
const (
	StatusStopped Status = core.StatusStopped
	StatusRunning Status = core.StatusRunning
)

// NewScheduler creates a root scheduler. See core.NewScheduler.
func NewScheduler(config *SchedulerConfig) *Scheduler {
	return core.NewScheduler(config)
}

// Convenience constructors re-exported from core.
var (
	DefaultSchedulerConfig = core.DefaultSchedulerConfig
	F                      = core.F
	NewDefaultLogger       = core.NewDefaultLogger
	NewNoOpLogger          = core.NewNoOpLogger
)
