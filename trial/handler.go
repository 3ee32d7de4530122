// Package trial provides the loop constructs experiments are built from:
// a condition/repetition iterator (Handler), glue for wiring a loop into a
// scheduler as a sub-scheduler (LoopBegin, LoopEnd, Schedule), and an
// adaptive N-up/M-down staircase procedure.
//
// The types here hold experiment control state and are touched from tasks
// on the frame goroutine; none of them are safe for concurrent use.
package trial

import "github.com/valyala/fastrand"

// Condition is one row of an experiment's condition table: stimulus
// parameters keyed by column name.
type Condition map[string]any

// Method selects the order in which a Handler emits trials.
type Method int

const (
	// MethodSequential runs the conditions in table order, once per rep.
	MethodSequential Method = iota

	// MethodRandom shuffles the condition order independently within each
	// rep, so every rep covers the full table in its own order.
	MethodRandom

	// MethodFullRandom shuffles the flattened conditions-times-reps
	// sequence as a whole; a rep's trials may interleave with another's.
	MethodFullRandom
)

// String returns the method name as experiment definitions spell it.
func (m Method) String() string {
	switch m {
	case MethodSequential:
		return "sequential"
	case MethodRandom:
		return "random"
	case MethodFullRandom:
		return "fullRandom"
	default:
		return "unknown"
	}
}

// ShuffleFunc permutes n elements via swap, in the manner of rand.Shuffle.
// Tests inject a deterministic one; the default is a fastrand-backed
// Fisher-Yates.
type ShuffleFunc func(n int, swap func(i, j int))

func fastrandShuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := int(fastrand.Uint32n(uint32(i + 1)))
		swap(i, j)
	}
}

// Trial is one emitted iteration of a loop.
type Trial struct {
	// Index is the trial's position in the executed sequence, 0-based.
	Index int

	// Rep is the repetition block the trial's condition instance belongs
	// to. Under MethodFullRandom blocks interleave, so Rep does not grow
	// monotonically with Index.
	Rep int

	// Condition is the condition row for this trial. Trials of the same
	// condition share the map; treat it as read-only.
	Condition Condition
}

// HandlerConfig holds configuration for a Handler.
type HandlerConfig struct {
	// Conditions is the condition table. Empty means a single empty
	// condition, so a bare repetition loop still emits Reps trials.
	Conditions []Condition

	// Reps is the number of times the full condition set runs.
	// Zero or negative values fall back to 1.
	Reps int

	// Method selects the trial order. Defaults to MethodSequential.
	Method Method

	// Shuffle permutes trial order for the random methods. If nil, a
	// fastrand-backed Fisher-Yates is used.
	Shuffle ShuffleFunc
}

// Handler iterates conditions x reps in the configured order. The full
// sequence is materialized at construction, so Total and Remaining are
// exact from the start.
type Handler struct {
	sequence []Trial
	next     int
}

// NewHandler creates a Handler and materializes its trial sequence.
// A nil config yields a single trial with an empty condition.
func NewHandler(config *HandlerConfig) *Handler {
	if config == nil {
		config = &HandlerConfig{}
	}
	conditions := config.Conditions
	if len(conditions) == 0 {
		conditions = []Condition{{}}
	}
	reps := config.Reps
	if reps <= 0 {
		reps = 1
	}
	shuffle := config.Shuffle
	if shuffle == nil {
		shuffle = fastrandShuffle
	}

	sequence := make([]Trial, 0, reps*len(conditions))
	for rep := 0; rep < reps; rep++ {
		order := make([]int, len(conditions))
		for i := range order {
			order[i] = i
		}
		if config.Method == MethodRandom {
			shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}
		for _, ci := range order {
			sequence = append(sequence, Trial{Rep: rep, Condition: conditions[ci]})
		}
	}

	if config.Method == MethodFullRandom {
		shuffle(len(sequence), func(i, j int) {
			sequence[i], sequence[j] = sequence[j], sequence[i]
		})
	}

	// Index reflects the final executed order, whatever the method did.
	for i := range sequence {
		sequence[i].Index = i
	}

	return &Handler{sequence: sequence}
}

// Next returns the next trial. ok is false once the sequence is exhausted.
func (h *Handler) Next() (t Trial, ok bool) {
	if h.next >= len(h.sequence) {
		return Trial{}, false
	}
	t = h.sequence[h.next]
	h.next++
	return t, true
}

// Total returns the number of trials in the full sequence.
func (h *Handler) Total() int {
	return len(h.sequence)
}

// Remaining returns the number of trials not yet emitted.
func (h *Handler) Remaining() int {
	return len(h.sequence) - h.next
}

// Done reports whether every trial has been emitted.
func (h *Handler) Done() bool {
	return h.next >= len(h.sequence)
}
