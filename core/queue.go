package core

import (
	"sync"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// =============================================================================
// entryQueue: Unbounded FIFO of task entries
// =============================================================================

// entryQueue holds the pending (task, args) pairs of one scheduler. It is
// mutex-guarded because Add must be safe from within a running task and
// from host goroutines (input listeners) alike; pops only ever happen on
// the frame goroutine.
type entryQueue struct {
	mu      sync.Mutex
	entries []taskEntry
}

func newEntryQueue() *entryQueue {
	return &entryQueue{
		entries: make([]taskEntry, 0, defaultQueueCap),
	}
}

func (q *entryQueue) push(e taskEntry) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
	return len(q.entries)
}

func (q *entryQueue) pop() (taskEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return taskEntry{}, false
	}

	e := q.entries[0]
	// Zero out the element in the underlying array to prevent memory leak
	q.entries[0] = taskEntry{}
	q.entries = q.entries[1:]
	q.maybeCompactLocked()

	return e, true
}

func (q *entryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// maybeCompactLocked reallocates the backing array once a long-lived queue
// has drained far below its capacity, so a steady-state frame loop does not
// pin the high-water mark forever.
func (q *entryQueue) maybeCompactLocked() {
	n := len(q.entries)
	c := cap(q.entries)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.entries = make([]taskEntry, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]taskEntry, n, newCap)
	copy(newSlice, q.entries)
	q.entries = newSlice
}
