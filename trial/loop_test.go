package trial

import (
	"fmt"
	"testing"

	"github.com/perceptlab/go-frame-scheduler/core"
	"github.com/perceptlab/go-frame-scheduler/frametimer"
)

func newLoopTestScheduler(timer *frametimer.Manual) *core.Scheduler {
	return core.NewScheduler(&core.SchedulerConfig{
		Window:     core.NopWindow{},
		FrameTimer: timer,
		Logger:     core.NewNoOpLogger(),
	})
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s did not panic", name)
		}
	}()
	fn()
}

// presentTrial returns a task that renders a single frame for a trial:
// FLIP_REPEAT on the presenting call, NEXT on the one after. Advancing
// with NEXT keeps the loop's sub-scheduler in its parent's retained slot
// until the whole sequence is exhausted.
func presentTrial(onShow func()) core.TaskFunc {
	presented := false
	return func(args ...any) core.Event {
		if presented {
			return core.EventNext
		}
		presented = true
		onShow()
		return core.EventFlipRepeat
	}
}

// Given a loop of 2 conditions x 2 reps wired via Schedule,
// When the scheduler runs to exhaustion on a manual timer,
// Then each trial presents exactly one frame in sequence order, the end
// hook fires, and the run takes one rendered frame per trial plus one
// final non-rendered frame.
func TestScheduleRunsRoutinePerTrial(t *testing.T) {
	timer := frametimer.NewManual()
	root := newLoopTestScheduler(timer)

	factory := func() *Handler {
		return NewHandler(&HandlerConfig{
			Conditions: named("left", "right"),
			Reps:       2,
		})
	}

	var ran []string
	routine := func(loop *core.Scheduler, tr Trial) {
		loop.Add(presentTrial(func() {
			ran = append(ran, fmt.Sprintf("%s/rep%d", tr.Condition["name"], tr.Rep))
		}))
	}

	endRan := false
	loop := Schedule(root, "trials", factory, routine, func() { endRan = true })
	if loop.Name() != "trials" {
		t.Fatalf("loop scheduler name = %q, want %q", loop.Name(), "trials")
	}

	root.Start()
	frames := timer.FireAll(32)

	want := []string{"left/rep0", "right/rep0", "left/rep1", "right/rep1"}
	if len(ran) != len(want) {
		t.Fatalf("routine tasks ran %d times, want %d: %v", len(ran), len(want), ran)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Fatalf("trial %d ran %q, want %q", i, ran[i], want[i])
		}
	}
	if !endRan {
		t.Fatal("loop end hook never ran")
	}
	if frames != 5 {
		t.Fatalf("run took %d frames, want 5 (4 rendered + 1 final)", frames)
	}
	if got := root.Status(); got != core.StatusStopped {
		t.Fatalf("root status after exhaustion = %v, want %v", got, core.StatusStopped)
	}
}

// A loop nested inside another is rebuilt for every outer trial: the inner
// factory runs once per outer trial and yields a fresh sequence each time.
func TestNestedLoopsRebuildInnerSequences(t *testing.T) {
	timer := frametimer.NewManual()
	root := newLoopTestScheduler(timer)

	outerFactory := func() *Handler {
		return NewHandler(&HandlerConfig{Reps: 2})
	}
	innerBuilds := 0
	innerFactory := func() *Handler {
		innerBuilds++
		return NewHandler(&HandlerConfig{Conditions: named("A", "B")})
	}

	var ran []string
	outerRoutine := func(loop *core.Scheduler, outer Trial) {
		Schedule(loop, "", innerFactory, func(inner *core.Scheduler, tr Trial) {
			inner.Add(presentTrial(func() {
				ran = append(ran, fmt.Sprintf("o%d/%s", outer.Rep, tr.Condition["name"]))
			}))
		}, nil)
	}

	Schedule(root, "blocks", outerFactory, outerRoutine, nil)
	root.Start()
	timer.FireAll(64)

	want := []string{"o0/A", "o0/B", "o1/A", "o1/B"}
	if len(ran) != len(want) {
		t.Fatalf("inner tasks ran %d times, want %d: %v", len(ran), len(want), ran)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Fatalf("trial %d ran %q, want %q", i, ran[i], want[i])
		}
	}
	if innerBuilds != 2 {
		t.Fatalf("inner factory ran %d times, want 2 (one per outer trial)", innerBuilds)
	}
	if got := root.Status(); got != core.StatusStopped {
		t.Fatalf("root status after exhaustion = %v, want %v", got, core.StatusStopped)
	}
}

// LoopEnd with a nil hook is a plain pass-through task.
func TestLoopEndNilHook(t *testing.T) {
	task := LoopEnd(nil)
	if got := task(); got != core.EventNext {
		t.Fatalf("LoopEnd(nil) task returned %v, want %v", got, core.EventNext)
	}
}

func TestLoopMisusePanics(t *testing.T) {
	timer := frametimer.NewManual()
	root := newLoopTestScheduler(timer)
	loop := root.NewSub("")
	factory := func() *Handler { return NewHandler(nil) }
	routine := func(*core.Scheduler, Trial) {}

	mustPanic(t, "LoopBegin with nil loop", func() { LoopBegin(nil, factory, routine) })
	mustPanic(t, "LoopBegin with nil factory", func() { LoopBegin(loop, nil, routine) })
	mustPanic(t, "LoopBegin with nil routine", func() { LoopBegin(loop, factory, nil) })
	mustPanic(t, "Schedule with nil parent", func() { Schedule(nil, "", factory, routine, nil) })
}
