package core

import "time"

// FrameRecord captures one completed driver pass.
type FrameRecord struct {
	Seq          int64
	StartedAt    time.Time
	TasksRun     int
	Event        Event
	FlipDuration time.Duration
	Panicked     bool
}

// SchedulerStats represents runtime observability state for a scheduler.
// TasksRun counts invocations made directly by this scheduler; one whole
// turn of a nested scheduler counts as a single invocation at this level.
type SchedulerStats struct {
	Name          string
	Status        Status
	QueuedTasks   int
	StickyTask    bool
	TasksRun      int64
	FramesFlipped int64
}

// Stats returns a point-in-time snapshot. Safe to call from any goroutine,
// including while the frame loop is running.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Name:          s.name,
		Status:        s.Status(),
		QueuedTasks:   s.queue.len(),
		StickyTask:    s.sticky.Load(),
		TasksRun:      s.tasksRun.Load(),
		FramesFlipped: s.framesFlipped.Load(),
	}
}
