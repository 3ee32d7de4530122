package frametimer

import "sync"

// Manual is a FrameTimer fired by hand. Tests and headless integrations
// use it to step a scheduler frame by frame without real time passing.
type Manual struct {
	mu      sync.Mutex
	pending []func()
}

// NewManual creates an empty Manual timer.
func NewManual() *Manual {
	return &Manual{}
}

// RequestFrame queues callback until the next Fire.
func (m *Manual) RequestFrame(callback func()) {
	if callback == nil {
		panic("frametimer: RequestFrame called with a nil callback")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, callback)
}

// Pending returns the number of queued callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Fire runs the oldest queued callback and reports whether one ran. A
// callback typically queues a follow-up request; Fire leaves that for the
// next call.
func (m *Manual) Fire() bool {
	callback := m.pop()
	if callback == nil {
		return false
	}
	callback()
	return true
}

// FireAll fires callbacks until none remain or limit frames have run, and
// returns the number fired. The limit keeps a scheduler that re-arms
// forever from spinning the caller.
func (m *Manual) FireAll(limit int) int {
	fired := 0
	for fired < limit && m.Fire() {
		fired++
	}
	return fired
}

func (m *Manual) pop() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil
	}
	callback := m.pending[0]
	m.pending[0] = nil
	m.pending = m.pending[1:]
	return callback
}
