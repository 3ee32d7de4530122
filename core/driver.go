package core

import (
	"context"
	"runtime/debug"
	"time"
)

// =============================================================================
// Frame-loop driver: couples the scheduler to the host's rendering cadence
// =============================================================================

// Start arms the frame-loop driver: the FrameTimer collaborator is asked to
// invoke one driver pass before the next frame, and each pass re-arms
// itself until the scheduler stops. Start must be called once, on the root
// of a scheduler tree only; calling it twice, or without Window and
// FrameTimer configured, panics.
func (s *Scheduler) Start() {
	if s.window == nil || s.frameTimer == nil {
		panic("framescheduler: Start requires the Window and FrameTimer collaborators")
	}
	if !s.started.CompareAndSwap(false, true) {
		panic("framescheduler: Start called twice on scheduler " + s.name)
	}
	if s.history == nil {
		s.history = newFrameHistory(s.historyCap)
	}
	s.logger.Info("scheduler started", F("scheduler", s.name))
	s.frameTimer.RequestFrame(s.update)
}

// update is one driver pass, invoked once per animation frame:
//
//  1. Honor a pending stop-at-next-frame request.
//  2. Run one turn of the scheduler tree.
//  3. On EventQuit, stop without rendering.
//  4. Otherwise call Window.Flip exactly once.
//  5. Re-arm for the next frame.
//
// If a PanicHandler is configured the pass recovers a panicking task,
// reports it, and stops the scheduler; otherwise the panic leaves through
// the FrameTimer's callback invocation.
func (s *Scheduler) update() {
	if s.panicHandler != nil {
		defer func() {
			if r := recover(); r != nil {
				s.panicHandler.HandlePanic(s.name, r, debug.Stack())
				s.history.add(FrameRecord{
					Seq:       s.frameSeq,
					StartedAt: s.lastFrameAt,
					Event:     EventQuit,
					Panicked:  true,
				})
				s.markStopped()
			}
		}()
	}

	if s.stopAtNextUpdate.Load() {
		s.markStopped()
		return
	}

	frameStart := time.Now()
	if !s.lastFrameAt.IsZero() {
		s.metrics.RecordFrameGap(frameStart.Sub(s.lastFrameAt))
	}
	s.lastFrameAt = frameStart
	s.frameSeq++
	s.status.Store(int32(StatusRunning))

	runsBefore := s.tasksRun.Load()
	state := s.runNextTasks()
	record := FrameRecord{
		Seq:       s.frameSeq,
		StartedAt: frameStart,
		TasksRun:  int(s.tasksRun.Load() - runsBefore),
		Event:     state,
	}

	if state == EventQuit {
		s.history.add(record)
		s.logger.Info("scheduler finished",
			F("scheduler", s.name),
			F("frames", s.frameSeq))
		s.markStopped()
		return
	}

	// FLIP_REPEAT or FLIP_NEXT: a render is due, and exactly one.
	flipStart := time.Now()
	s.window.Flip()
	record.FlipDuration = time.Since(flipStart)
	s.framesFlipped.Add(1)
	s.metrics.RecordFlip(record.FlipDuration)
	s.history.add(record)

	s.frameTimer.RequestFrame(s.update)
}

func (s *Scheduler) markStopped() {
	s.status.Store(int32(StatusStopped))
	s.stopOnce.Do(func() { close(s.stopped) })
}

// WaitStopped blocks until the scheduler has stopped, either because its
// tree was exhausted, Stop was called, or a recovered panic ended the run.
// Returns ctx.Err() if the context is done first.
func (s *Scheduler) WaitStopped(ctx context.Context) error {
	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
