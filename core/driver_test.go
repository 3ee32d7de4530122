package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recordingPanicHandler captures the driver's panic reports.
type recordingPanicHandler struct {
	mu        sync.Mutex
	scheduler string
	info      any
	calls     int
}

func (h *recordingPanicHandler) HandlePanic(scheduler string, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scheduler = scheduler
	h.info = panicInfo
	h.calls++
}

// captureMetrics records every Metrics call for assertions.
type captureMetrics struct {
	taskEvents []Event
	flips      int
	gaps       int
	depths     []int
}

func (m *captureMetrics) RecordTaskRun(scheduler string, event Event, duration time.Duration) {
	m.taskEvents = append(m.taskEvents, event)
}

func (m *captureMetrics) RecordFlip(duration time.Duration) { m.flips++ }

func (m *captureMetrics) RecordFrameGap(gap time.Duration) { m.gaps++ }

func (m *captureMetrics) RecordQueueDepth(scheduler string, depth int) {
	m.depths = append(m.depths, depth)
}

// TestDriverConcreteScenario walks the canonical two-frame sequence
// Main test items:
// 1. Frame one executes the NEXT task and the FLIP_NEXT task, renders
//    exactly once, and re-arms
// 2. Frame two executes the QUIT task, renders nothing, stops, and does
//    not re-arm
func TestDriverConcreteScenario(t *testing.T) {
	win := &mockWindow{}
	timer := &manualTimer{}
	s := newTestScheduler(win, timer, nil)

	var ran []string
	s.Add(TaskFunc(func(args ...any) Event {
		ran = append(ran, "t1")
		return EventNext
	}))
	s.Add(TaskFunc(func(args ...any) Event {
		ran = append(ran, "t2")
		return EventFlipNext
	}))
	s.Add(TaskFunc(func(args ...any) Event {
		ran = append(ran, "t3")
		return EventQuit
	}))

	s.Start()
	if timer.pending == nil {
		t.Fatal("Start did not arm the frame timer")
	}

	timer.fire()
	if len(ran) != 2 || ran[0] != "t1" || ran[1] != "t2" {
		t.Errorf("after frame 1: ran = %v, want [t1 t2]", ran)
	}
	if win.flips != 1 {
		t.Errorf("after frame 1: flips = %d, want 1", win.flips)
	}
	if timer.pending == nil {
		t.Error("after frame 1: driver did not re-arm")
	}
	if s.Status() != StatusRunning {
		t.Errorf("after frame 1: Status() = %v, want %v", s.Status(), StatusRunning)
	}

	timer.fire()
	if len(ran) != 3 || ran[2] != "t3" {
		t.Errorf("after frame 2: ran = %v, want [t1 t2 t3]", ran)
	}
	if win.flips != 1 {
		t.Errorf("after frame 2: flips = %d, want 1 (QUIT suppresses rendering)", win.flips)
	}
	if timer.pending != nil {
		t.Error("after frame 2: driver re-armed after QUIT")
	}
	if s.Status() != StatusStopped {
		t.Errorf("after frame 2: Status() = %v, want %v", s.Status(), StatusStopped)
	}
}

// TestDriverFlipRepeatRenderCount verifies the N+1 renders property:
// a task answering FLIP_REPEAT N times and then FLIP_NEXT is rendered
// after each of its N+1 invocations before the next queued task begins
func TestDriverFlipRepeatRenderCount(t *testing.T) {
	const repeats = 3

	win := &mockWindow{}
	timer := &manualTimer{}
	s := newTestScheduler(win, timer, nil)

	invocations := 0
	flipsWhenNextBegan := -1
	s.Add(TaskFunc(func(args ...any) Event {
		invocations++
		if invocations <= repeats {
			return EventFlipRepeat
		}
		return EventFlipNext
	}))
	s.Add(TaskFunc(func(args ...any) Event {
		flipsWhenNextBegan = win.flips
		return EventNext
	}))

	s.Start()
	frames := timer.fireAll(t, 100)

	if invocations != repeats+1 {
		t.Errorf("invocations = %d, want %d", invocations, repeats+1)
	}
	if flipsWhenNextBegan != repeats+1 {
		t.Errorf("renders before next task = %d, want %d", flipsWhenNextBegan, repeats+1)
	}
	// repeats+1 rendering frames plus the final exhausted frame.
	if frames != repeats+2 {
		t.Errorf("frames = %d, want %d", frames, repeats+2)
	}
	if win.flips != repeats+1 {
		t.Errorf("flips = %d, want %d", win.flips, repeats+1)
	}
}

// TestDriverNextTriggersNoRender verifies that a turn of pure bookkeeping
// tasks drains in a single frame with zero renders
func TestDriverNextTriggersNoRender(t *testing.T) {
	win := &mockWindow{}
	timer := &manualTimer{}
	s := newTestScheduler(win, timer, nil)

	ran := 0
	for i := 0; i < 3; i++ {
		s.Add(TaskFunc(func(args ...any) Event {
			ran++
			return EventNext
		}))
	}

	s.Start()
	frames := timer.fireAll(t, 10)

	if ran != 3 {
		t.Errorf("ran = %d, want 3", ran)
	}
	if win.flips != 0 {
		t.Errorf("flips = %d, want 0", win.flips)
	}
	if frames != 1 {
		t.Errorf("frames = %d, want 1", frames)
	}
	if s.Status() != StatusStopped {
		t.Errorf("Status() = %v, want %v", s.Status(), StatusStopped)
	}
}

// TestDriverStopBeforeNextFrame verifies the stop-at-next-update latch
// Given: A scheduler holding a task that repeats forever
// When: Stop is called between frames
// Then: The next frame runs no task, renders nothing, and does not re-arm
func TestDriverStopBeforeNextFrame(t *testing.T) {
	win := &mockWindow{}
	timer := &manualTimer{}
	s := newTestScheduler(win, timer, nil)

	invocations := 0
	s.Add(TaskFunc(func(args ...any) Event {
		invocations++
		return EventFlipRepeat
	}))

	s.Start()
	timer.fire()
	if invocations != 1 || win.flips != 1 {
		t.Fatalf("after frame 1: invocations = %d, flips = %d, want 1, 1", invocations, win.flips)
	}

	s.Stop()
	if s.Status() != StatusStopped {
		t.Errorf("Status() after Stop = %v, want %v", s.Status(), StatusStopped)
	}

	timer.fire()
	if invocations != 1 {
		t.Errorf("invocations after stop = %d, want 1", invocations)
	}
	if win.flips != 1 {
		t.Errorf("flips after stop = %d, want 1", win.flips)
	}
	if timer.pending != nil {
		t.Error("driver re-armed after stop")
	}
}

// TestDriverPanicWithHandler verifies the recover path: with a
// PanicHandler configured the driver reports the panic, records the
// frame, stops, and the panic does not escape the frame callback
func TestDriverPanicWithHandler(t *testing.T) {
	handler := &recordingPanicHandler{}
	win := &mockWindow{}
	timer := &manualTimer{}
	s := NewScheduler(&SchedulerConfig{
		Name:         "panicky",
		Window:       win,
		FrameTimer:   timer,
		Logger:       NewNoOpLogger(),
		PanicHandler: handler,
	})

	s.Add(TaskFunc(func(args ...any) Event {
		panic("boom")
	}))
	afterRan := false
	s.Add(TaskFunc(func(args ...any) Event {
		afterRan = true
		return EventNext
	}))

	s.Start()
	timer.fire()

	if handler.calls != 1 {
		t.Fatalf("handler.calls = %d, want 1", handler.calls)
	}
	if handler.info != "boom" {
		t.Errorf("handler.info = %v, want boom", handler.info)
	}
	if handler.scheduler != "panicky" {
		t.Errorf("handler.scheduler = %q, want %q", handler.scheduler, "panicky")
	}
	if s.Status() != StatusStopped {
		t.Errorf("Status() = %v, want %v", s.Status(), StatusStopped)
	}
	if timer.pending != nil {
		t.Error("driver re-armed after a panicking frame")
	}
	if afterRan {
		t.Error("a queued task ran after the panicking frame")
	}

	last, ok := s.LastFrame()
	if !ok || !last.Panicked {
		t.Errorf("LastFrame() = %+v, %v, want a panicked record", last, ok)
	}
}

// TestDriverPanicWithoutHandler verifies that with no PanicHandler the
// panic leaves through the frame callback untouched
func TestDriverPanicWithoutHandler(t *testing.T) {
	win := &mockWindow{}
	timer := &manualTimer{}
	s := newTestScheduler(win, timer, nil)

	s.Add(TaskFunc(func(args ...any) Event {
		panic("boom")
	}))

	s.Start()

	recovered := func() (v any) {
		defer func() { v = recover() }()
		timer.fire()
		return nil
	}()

	if recovered != "boom" {
		t.Errorf("recovered = %v, want boom", recovered)
	}
}

// TestDriverStartMisuse verifies the documented programming errors
func TestDriverStartMisuse(t *testing.T) {
	func() {
		defer func() {
			if recover() == nil {
				t.Error("Start without collaborators did not panic")
			}
		}()
		NewScheduler(nil).Start()
	}()

	func() {
		timer := &manualTimer{}
		s := newTestScheduler(&mockWindow{}, timer, nil)
		s.Start()
		defer func() {
			if recover() == nil {
				t.Error("second Start did not panic")
			}
		}()
		s.Start()
	}()
}

// TestWaitStopped covers both exits of WaitStopped
func TestWaitStopped(t *testing.T) {
	// Context first: a scheduler that never stops.
	s := newTestScheduler(&mockWindow{}, &manualTimer{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.WaitStopped(ctx); err != context.DeadlineExceeded {
		t.Errorf("WaitStopped = %v, want %v", err, context.DeadlineExceeded)
	}

	// Normal exit: tree exhausted.
	timer := &manualTimer{}
	s = newTestScheduler(&mockWindow{}, timer, nil)
	s.Add(TaskFunc(func(args ...any) Event { return EventQuit }))
	s.Start()
	timer.fireAll(t, 10)
	if err := s.WaitStopped(context.Background()); err != nil {
		t.Errorf("WaitStopped after quit = %v, want nil", err)
	}
}

// TestDriverHistoryAndStats verifies the frame record ring and the stats
// snapshot after a short run
func TestDriverHistoryAndStats(t *testing.T) {
	win := &mockWindow{}
	timer := &manualTimer{}
	s := newTestScheduler(win, timer, nil)

	s.Add(TaskFunc(func(args ...any) Event { return EventNext }))
	s.Add(TaskFunc(func(args ...any) Event { return EventFlipNext }))
	s.Add(TaskFunc(func(args ...any) Event { return EventQuit }))

	s.Start()
	timer.fireAll(t, 10)

	recent := s.RecentFrames(0)
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	// Newest first.
	if recent[0].Event != EventQuit || recent[0].TasksRun != 1 {
		t.Errorf("recent[0] = %+v, want QUIT with 1 task", recent[0])
	}
	if recent[1].Event != EventFlipNext || recent[1].TasksRun != 2 {
		t.Errorf("recent[1] = %+v, want FLIP_NEXT with 2 tasks", recent[1])
	}

	last, ok := s.LastFrame()
	if !ok || last.Seq != 2 {
		t.Errorf("LastFrame() = %+v, %v, want Seq 2", last, ok)
	}

	stats := s.Stats()
	if stats.Name != "test" {
		t.Errorf("stats.Name = %q, want test", stats.Name)
	}
	if stats.TasksRun != 3 {
		t.Errorf("stats.TasksRun = %d, want 3", stats.TasksRun)
	}
	if stats.FramesFlipped != 1 {
		t.Errorf("stats.FramesFlipped = %d, want 1", stats.FramesFlipped)
	}
	if stats.Status != StatusStopped {
		t.Errorf("stats.Status = %v, want %v", stats.Status, StatusStopped)
	}
	if stats.QueuedTasks != 0 || stats.StickyTask {
		t.Errorf("stats queue state = %d/%v, want 0/false", stats.QueuedTasks, stats.StickyTask)
	}
}

// TestDriverMetrics verifies what reaches the Metrics collaborator during
// a two-frame run
func TestDriverMetrics(t *testing.T) {
	metrics := &captureMetrics{}
	timer := &manualTimer{}
	s := NewScheduler(&SchedulerConfig{
		Name:       "metered",
		Window:     &mockWindow{},
		FrameTimer: timer,
		Logger:     NewNoOpLogger(),
		Metrics:    metrics,
	})

	s.Add(TaskFunc(func(args ...any) Event { return EventNext }))
	s.Add(TaskFunc(func(args ...any) Event { return EventFlipNext }))

	s.Start()
	timer.fireAll(t, 10)

	wantEvents := []Event{EventNext, EventFlipNext}
	if len(metrics.taskEvents) != len(wantEvents) {
		t.Fatalf("taskEvents = %v, want %v", metrics.taskEvents, wantEvents)
	}
	for i, want := range wantEvents {
		if metrics.taskEvents[i] != want {
			t.Errorf("taskEvents[%d] = %v, want %v", i, metrics.taskEvents[i], want)
		}
	}
	if metrics.flips != 1 {
		t.Errorf("flips = %d, want 1", metrics.flips)
	}
	// The gap is measured from the second frame on.
	if metrics.gaps != 1 {
		t.Errorf("gaps = %d, want 1", metrics.gaps)
	}
	if len(metrics.depths) == 0 {
		t.Error("no queue depth samples recorded")
	}
}
