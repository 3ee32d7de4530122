// Package data collects experiment results as they are produced by tasks
// and persists them once the run ends. A Handler accumulates key/value
// observations into rows, one row per trial; a Store saves the final
// snapshot (in memory, as CSV, or to MongoDB via data/mongostore).
//
// Handler also carries the experiment-ended flag the scheduler consults
// for quit propagation: wire the same Handler into
// core.SchedulerConfig.Experiment and call End from the task that
// finishes the run.
package data

import (
	"sync"
	"sync/atomic"
	"time"
)

// HandlerConfig holds configuration for a Handler.
type HandlerConfig struct {
	// Experiment names the experiment in saved results.
	// Defaults to "experiment".
	Experiment string

	// Session identifies the run, typically a participant and session
	// id. May be empty.
	Session string
}

// Handler accumulates experiment observations. AddData writes into the
// current row; NextEntry commits it and starts the next one. Columns grow
// as new keys appear and keep their first-seen order, so every saved row
// lines up under one header.
//
// Safe for concurrent use: tasks write on the frame goroutine while the
// ended flag may be read or latched from anywhere.
type Handler struct {
	experiment string
	session    string
	started    time.Time

	mu      sync.Mutex
	columns []string
	known   map[string]struct{}
	rows    []map[string]any
	current map[string]any

	ended atomic.Bool
}

// NewHandler creates a Handler. A nil config names the experiment
// "experiment" with an empty session.
func NewHandler(config *HandlerConfig) *Handler {
	if config == nil {
		config = &HandlerConfig{}
	}
	experiment := config.Experiment
	if experiment == "" {
		experiment = "experiment"
	}
	return &Handler{
		experiment: experiment,
		session:    config.Session,
		started:    time.Now(),
		known:      make(map[string]struct{}),
	}
}

// AddData records one observation in the current row. A key seen for the
// first time appends a column. Calls after End are ignored.
func (h *Handler) AddData(key string, value any) {
	if h.ended.Load() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.known[key]; !ok {
		h.known[key] = struct{}{}
		h.columns = append(h.columns, key)
	}
	if h.current == nil {
		h.current = make(map[string]any)
	}
	h.current[key] = value
}

// NextEntry commits the current row and starts a new one. An empty
// current row commits nothing, so routines that recorded no data this
// trial do not produce blank rows.
func (h *Handler) NextEntry() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commitLocked()
}

func (h *Handler) commitLocked() {
	if len(h.current) == 0 {
		return
	}
	h.rows = append(h.rows, h.current)
	h.current = nil
}

// End commits any in-progress row and latches the ended flag. May be
// called from any goroutine; the scheduler observes it on its next turn.
func (h *Handler) End() {
	h.mu.Lock()
	h.commitLocked()
	h.mu.Unlock()
	h.ended.Store(true)
}

// Ended reports whether End has been called. This satisfies the
// scheduler's Experiment collaborator.
func (h *Handler) Ended() bool {
	return h.ended.Load()
}

// Columns returns the column names in first-seen order.
func (h *Handler) Columns() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.columns...)
}

// Rows returns copies of the committed rows. The current in-progress row
// is not included; commit it with NextEntry or End first.
func (h *Handler) Rows() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyRows(h.rows)
}

// RowCount returns the number of committed rows.
func (h *Handler) RowCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rows)
}

// Result snapshots the handler for persistence. The snapshot shares
// nothing with the handler; later writes do not leak into it.
func (h *Handler) Result() *Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &Result{
		Experiment: h.experiment,
		Session:    h.session,
		Started:    h.started,
		Columns:    append([]string(nil), h.columns...),
		Rows:       copyRows(h.rows),
	}
}

func copyRows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		clone := make(map[string]any, len(row))
		for k, v := range row {
			clone[k] = v
		}
		out[i] = clone
	}
	return out
}

// Result is a finished (or in-flight) experiment's data snapshot, the
// unit a Store persists.
type Result struct {
	// Experiment is the experiment name.
	Experiment string

	// Session identifies the run. May be empty.
	Session string

	// Started is when the handler was created.
	Started time.Time

	// Columns are the column names in first-seen order.
	Columns []string

	// Rows hold one map per committed entry; keys a row never recorded
	// are absent.
	Rows []map[string]any
}
