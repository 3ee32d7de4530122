package trial

// StaircaseConfig holds configuration for a Staircase.
type StaircaseConfig struct {
	// StartValue is the initial stimulus intensity.
	StartValue float64

	// StepSizes are the step magnitudes, advanced one per reversal; the
	// last entry repeats for all further reversals. Empty means {1}.
	StepSizes []float64

	// NUp is the number of consecutive incorrect responses before the
	// value increases. Zero or negative falls back to 1.
	NUp int

	// NDown is the number of consecutive correct responses before the
	// value decreases. Zero or negative falls back to 1.
	NDown int

	// MinValue and MaxValue clamp the value after each step. The clamp
	// applies only when MaxValue > MinValue; leave both zero for an
	// unclamped staircase.
	MinValue float64
	MaxValue float64

	// MaxTrials ends the staircase after this many responses. Zero means
	// no trial limit.
	MaxTrials int

	// MaxReversals ends the staircase after this many direction
	// reversals. Zero means no reversal limit.
	MaxReversals int
}

// Staircase is an adaptive N-up/M-down procedure: the stimulus value
// steps down after NDown consecutive correct responses and up after NUp
// consecutive incorrect ones, converging on a performance threshold.
//
// A Staircase only decides values; the caller runs the trials. The usual
// shape is a loop task that presents s.Value(), scores the response,
// calls AddResponse, and returns EventQuit once Done reports true.
type Staircase struct {
	value     float64
	stepSizes []float64
	stepIndex int

	nUp     int
	nDown   int
	clamped bool
	min     float64
	max     float64

	correctRun int
	wrongRun   int
	direction  int // +1 after an up step, -1 after a down step, 0 before the first step

	trials       int
	reversals    int
	maxTrials    int
	maxReversals int
	done         bool
}

// NewStaircase creates a Staircase. A nil config starts at zero with unit
// steps and no termination rule.
func NewStaircase(config *StaircaseConfig) *Staircase {
	if config == nil {
		config = &StaircaseConfig{}
	}
	stepSizes := config.StepSizes
	if len(stepSizes) == 0 {
		stepSizes = []float64{1}
	}
	nUp := config.NUp
	if nUp <= 0 {
		nUp = 1
	}
	nDown := config.NDown
	if nDown <= 0 {
		nDown = 1
	}
	return &Staircase{
		value:        config.StartValue,
		stepSizes:    stepSizes,
		nUp:          nUp,
		nDown:        nDown,
		clamped:      config.MaxValue > config.MinValue,
		min:          config.MinValue,
		max:          config.MaxValue,
		maxTrials:    config.MaxTrials,
		maxReversals: config.MaxReversals,
	}
}

// Value returns the stimulus intensity for the next trial.
func (s *Staircase) Value() float64 {
	return s.value
}

// AddResponse records the outcome of one trial at the current value and
// updates the value, reversal count and termination state. Responses
// after the staircase is done are ignored.
func (s *Staircase) AddResponse(correct bool) {
	if s.done {
		return
	}
	s.trials++

	step := 0
	if correct {
		s.correctRun++
		s.wrongRun = 0
		if s.correctRun >= s.nDown {
			step = -1
			s.correctRun = 0
		}
	} else {
		s.wrongRun++
		s.correctRun = 0
		if s.wrongRun >= s.nUp {
			step = 1
			s.wrongRun = 0
		}
	}

	if step != 0 {
		// A reversal is a step against the previous step's direction;
		// the very first step sets the direction without reversing.
		if s.direction != 0 && step != s.direction {
			s.reversals++
			if s.stepIndex < len(s.stepSizes)-1 {
				s.stepIndex++
			}
		}
		s.direction = step
		s.value += float64(step) * s.stepSizes[s.stepIndex]
		if s.clamped {
			if s.value < s.min {
				s.value = s.min
			}
			if s.value > s.max {
				s.value = s.max
			}
		}
	}

	if s.maxTrials > 0 && s.trials >= s.maxTrials {
		s.done = true
	}
	if s.maxReversals > 0 && s.reversals >= s.maxReversals {
		s.done = true
	}
}

// Done reports whether a termination rule has fired.
func (s *Staircase) Done() bool {
	return s.done
}

// Trials returns the number of responses recorded so far.
func (s *Staircase) Trials() int {
	return s.trials
}

// Reversals returns the number of direction reversals so far.
func (s *Staircase) Reversals() int {
	return s.reversals
}
