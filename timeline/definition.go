// Package timeline loads declarative experiment definitions from HCL
// files and builds runnable scheduler trees out of them. A definition
// names the experiment, lists the resources to prefetch, and lays out a
// flow of routines and (arbitrarily nested) loops:
//
//	experiment {
//	  name    = "stroop"
//	  session = "p01"
//	  fps     = 60
//	}
//
//	resource "fixation" {
//	  location = "https://stimuli.example.org/fixation.png"
//	}
//
//	routine "welcome" {
//	  duration_ms = 1500
//	}
//
//	loop "trials" {
//	  reps   = 2
//	  method = "random"
//	  conditions = [
//	    { word = "RED", ink = "red" },
//	    { word = "BLUE", ink = "blue" },
//	  ]
//
//	  routine "stimulus" {
//	    duration_ms = 800
//	    record      = true
//	  }
//	}
//
// Routine and loop blocks run in the order they appear in the file.
// Build turns a Definition into a scheduler tree wired to the resource,
// trial and data packages; Run drives the whole experiment to completion.
package timeline

import (
	"time"

	"github.com/perceptlab/go-frame-scheduler/trial"
)

// Definition is a parsed experiment file.
type Definition struct {
	// Name is the experiment name; empty if the file has no experiment
	// block.
	Name string

	// Session identifies the run. May be empty.
	Session string

	// FPS is the requested frame rate, zero when the file does not set
	// one. Build falls back to the frame timer default.
	FPS float64

	// Resources are the stimuli to prefetch before the flow starts, in
	// file order.
	Resources []ResourceDef

	// Flow is the experiment's top-level sequence of routines and
	// loops, in file order.
	Flow []Step
}

// ResourceDef names one stimulus and where to fetch it from.
type ResourceDef struct {
	Name     string
	Location string
}

// Step is one element of an experiment's flow, either a *RoutineStep or
// a *LoopStep. The interface is sealed; the builder switches over the
// two variants exhaustively.
type Step interface {
	isStep()
}

// RoutineStep presents frames for a fixed duration.
type RoutineStep struct {
	// Name labels the routine in data marks.
	Name string

	// Duration is how long the routine repeats. A zero duration still
	// renders exactly one frame.
	Duration time.Duration

	// Record adds a <name>.elapsed_ms mark to the current data row when
	// the routine completes.
	Record bool
}

func (*RoutineStep) isStep() {}

// LoopStep repeats its body over conditions x reps.
type LoopStep struct {
	// Name labels the loop; its sub-scheduler and data columns carry it.
	Name string

	// Reps is the number of repetitions of the condition set, at least 1.
	Reps int

	// Method selects the trial order.
	Method trial.Method

	// Conditions is the condition table; nil means a bare repetition
	// loop.
	Conditions []trial.Condition

	// Body is the per-trial sequence of routines and nested loops, in
	// file order.
	Body []Step
}

func (*LoopStep) isStep() {}
