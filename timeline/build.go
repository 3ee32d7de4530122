package timeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/perceptlab/go-frame-scheduler/clock"
	"github.com/perceptlab/go-frame-scheduler/core"
	"github.com/perceptlab/go-frame-scheduler/data"
	"github.com/perceptlab/go-frame-scheduler/frametimer"
	"github.com/perceptlab/go-frame-scheduler/resource"
	"github.com/perceptlab/go-frame-scheduler/trial"
)

// Env supplies the collaborators a definition is built against. Every
// field is optional; zero values select headless defaults, so tests and
// windowless tools can run definitions as-is.
type Env struct {
	// Window renders frames. Nil means core.NopWindow (headless).
	Window core.Window

	// FrameTimer paces frames. Nil means an owned frametimer.FixedRate
	// at the definition's fps, stopped again by Runtime.Close.
	FrameTimer core.FrameTimer

	// Data collects results. Nil means a fresh handler named after the
	// definition.
	Data *data.Handler

	// Resources fetches stimuli. Nil means a fresh default manager.
	Resources *resource.Manager

	// Store persists the result at the end of Run. Nil skips saving.
	Store data.Store

	// Logger, Metrics and PanicHandler pass through to the scheduler.
	Logger       core.Logger
	Metrics      core.Metrics
	PanicHandler core.PanicHandler
}

// Runtime is a built experiment: the scheduler tree plus the
// collaborators it was wired to.
type Runtime struct {
	// Root is the scheduler Start is called on.
	Root *core.Scheduler

	// Data is the handler collecting the experiment's rows; it is also
	// the scheduler's experiment-ended flag.
	Data *data.Handler

	// Resources holds the registered stimuli. Prefetch is the caller's
	// (or Run's) responsibility.
	Resources *resource.Manager

	store      data.Store
	ownedTimer *frametimer.FixedRate
}

// Close releases anything Build created on the runtime's behalf,
// currently the owned frame timer. Safe to call more than once; never
// call it from a task.
func (r *Runtime) Close() {
	if r.ownedTimer != nil {
		r.ownedTimer.Stop()
	}
}

// Build wires a definition into a runnable scheduler tree: a resource
// gate first (when the definition names resources), then the flow's
// routines and loops, then a finishing task that ends the data handler.
func Build(def *Definition, env *Env) (*Runtime, error) {
	if def == nil {
		return nil, errors.New("build nil definition")
	}
	if env == nil {
		env = &Env{}
	}

	handler := env.Data
	if handler == nil {
		handler = data.NewHandler(&data.HandlerConfig{
			Experiment: def.Name,
			Session:    def.Session,
		})
	}

	manager := env.Resources
	if manager == nil {
		manager = resource.NewManager(&resource.Options{
			Retry:  resource.DefaultRetryPolicy(),
			Logger: env.Logger,
		})
	}
	seen := make(map[string]struct{}, len(def.Resources))
	for _, res := range def.Resources {
		if _, dup := seen[res.Name]; dup {
			return nil, errors.Errorf("duplicate resource %q", res.Name)
		}
		seen[res.Name] = struct{}{}
		manager.Add(res.Name, res.Location)
	}

	window := env.Window
	if window == nil {
		window = core.NopWindow{}
	}

	rt := &Runtime{Data: handler, Resources: manager, store: env.Store}
	timer := env.FrameTimer
	if timer == nil {
		rt.ownedTimer = frametimer.NewFixedRate(&frametimer.FixedRateConfig{
			FPS:    def.FPS,
			Logger: env.Logger,
		})
		timer = rt.ownedTimer
	}

	rt.Root = core.NewScheduler(&core.SchedulerConfig{
		Name:         def.Name,
		Window:       window,
		FrameTimer:   timer,
		Experiment:   handler,
		Logger:       env.Logger,
		Metrics:      env.Metrics,
		PanicHandler: env.PanicHandler,
	})

	if len(def.Resources) > 0 {
		rt.Root.Add(manager.GateTask())
	}
	buildSteps(rt.Root, def.Flow, handler, nil)
	rt.Root.Add(finishTask(handler))

	return rt, nil
}

// Run builds a definition and drives it to completion: prefetch the
// resources, start the scheduler, wait for it to stop, then snapshot the
// data and save it through the environment's store. A resource failure
// that quits the run surfaces as the returned error alongside the partial
// result.
func Run(ctx context.Context, def *Definition, env *Env) (*data.Result, error) {
	rt, err := Build(def, env)
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	rt.Resources.StartPrefetch(ctx)
	rt.Root.Start()

	if err := rt.Root.WaitStopped(ctx); err != nil {
		rt.Root.Stop()
		return nil, errors.Wrap(err, "wait for experiment")
	}

	// The finish task ends the handler on a clean run; ending again here
	// commits any row left behind by an early quit.
	rt.Data.End()
	result := rt.Data.Result()

	if err := rt.Resources.Err(); err != nil {
		return result, err
	}
	if rt.store != nil {
		if err := rt.store.Save(ctx, result); err != nil {
			return result, errors.Wrap(err, "save results")
		}
	}
	return result, nil
}

// mark is one key/value pair written into the data row at trial start.
type mark struct {
	key   string
	value any
}

// buildSteps appends the tasks for a flow to sched. trialMarks carries
// the identity of every enclosing loop trial, so nested loops inherit
// their outer context in each data row.
func buildSteps(sched *core.Scheduler, steps []Step, handler *data.Handler, trialMarks []mark) {
	for _, step := range steps {
		switch s := step.(type) {
		case *RoutineStep:
			sched.Add(routineTask(s, handler, trialMarks))
		case *LoopStep:
			buildLoop(sched, s, handler, trialMarks)
		default:
			panic(fmt.Sprintf("timeline: step %T does not conform to the Step contract", step))
		}
	}
}

func buildLoop(parent *core.Scheduler, step *LoopStep, handler *data.Handler, outerMarks []mark) {
	factory := func() *trial.Handler {
		return trial.NewHandler(&trial.HandlerConfig{
			Conditions: step.Conditions,
			Reps:       step.Reps,
			Method:     step.Method,
		})
	}
	routine := func(loop *core.Scheduler, t trial.Trial) {
		trialMarks := make([]mark, 0, len(outerMarks)+2+len(t.Condition))
		trialMarks = append(trialMarks, outerMarks...)
		trialMarks = append(trialMarks,
			mark{step.Name + ".trial", t.Index},
			mark{step.Name + ".rep", t.Rep},
		)
		for _, key := range sortedKeys(t.Condition) {
			trialMarks = append(trialMarks, mark{key, t.Condition[key]})
		}

		loop.Add(importTask(handler, trialMarks))
		buildSteps(loop, step.Body, handler, trialMarks)
		loop.Add(commitTask(handler))
	}
	trial.Schedule(parent, step.Name, factory, routine, nil)
}

// routineTask presents frames until the routine's duration elapses: it
// answers EventFlipRepeat while the countdown runs and EventNext once it
// expires. The first call always repeats, so even a zero-duration routine
// renders exactly one frame, and advancing with EventNext keeps an
// enclosing loop's sub-scheduler in its parent's retained slot. Recording
// restates the trial marks so the elapsed time is committed with its
// identity even when an earlier nested loop consumed the row.
func routineTask(step *RoutineStep, handler *data.Handler, marks []mark) core.TaskFunc {
	var countdown *clock.Countdown
	var stopwatch *clock.Clock
	return func(args ...any) core.Event {
		if countdown == nil {
			countdown = clock.NewCountdown(step.Duration)
			stopwatch = clock.New()
			return core.EventFlipRepeat
		}
		if !countdown.Expired() {
			return core.EventFlipRepeat
		}
		if step.Record {
			for _, m := range marks {
				handler.AddData(m.key, m.value)
			}
			handler.AddData(step.Name+".elapsed_ms", stopwatch.Elapsed().Milliseconds())
		}
		countdown = nil
		return core.EventNext
	}
}

// importTask opens a trial's data row with the loop identity and
// condition values.
func importTask(handler *data.Handler, marks []mark) core.TaskFunc {
	return func(args ...any) core.Event {
		for _, m := range marks {
			handler.AddData(m.key, m.value)
		}
		return core.EventNext
	}
}

// commitTask closes a trial's data row.
func commitTask(handler *data.Handler) core.TaskFunc {
	return func(args ...any) core.Event {
		handler.NextEntry()
		return core.EventNext
	}
}

// finishTask ends the experiment once the flow is exhausted, so the quit
// propagates and the driver stops.
func finishTask(handler *data.Handler) core.TaskFunc {
	return func(args ...any) core.Event {
		handler.End()
		return core.EventQuit
	}
}

func sortedKeys(condition trial.Condition) []string {
	keys := make([]string, 0, len(condition))
	for key := range condition {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
