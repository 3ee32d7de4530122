package core

import "sync"

// DefaultHistoryCapacity is the default size of the frame record ring.
const DefaultHistoryCapacity = 128

// frameHistory is a fixed-capacity ring of the most recent FrameRecords.
// The driver writes on the frame goroutine; readers may come from anywhere
// (stats pollers, debugging dumps), so access is mutex-guarded.
type frameHistory struct {
	mu    sync.Mutex
	items []FrameRecord
	head  int
	count int
}

func newFrameHistory(capacity int) *frameHistory {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &frameHistory{items: make([]FrameRecord, capacity)}
}

func (h *frameHistory) add(record FrameRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

func (h *frameHistory) recent(limit int) []FrameRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]FrameRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

func (h *frameHistory) last() (FrameRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return FrameRecord{}, false
	}

	idx := (h.head - 1 + len(h.items)) % len(h.items)
	return h.items[idx], true
}

// RecentFrames returns up to limit of the most recent frame records, newest
// first. limit <= 0 means all retained records. Returns nil before the
// first driver pass.
func (s *Scheduler) RecentFrames(limit int) []FrameRecord {
	if s.history == nil {
		return nil
	}
	return s.history.recent(limit)
}

// LastFrame returns the most recent frame record, if any.
func (s *Scheduler) LastFrame() (FrameRecord, bool) {
	if s.history == nil {
		return FrameRecord{}, false
	}
	return s.history.last()
}
