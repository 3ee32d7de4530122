package resource

import "github.com/perceptlab/go-frame-scheduler/core"

// GateTask returns a task that holds its scheduler until the named
// resources are ready: it answers EventFlipRepeat while any is still
// pending (so a loading frame renders), EventNext once all are ready, and
// EventQuit when any has failed, ending the run. The failure stays
// readable through Err and Get.
//
// With no names the gate covers every resource registered at call time.
// Panics on an unknown name.
func (m *Manager) GateTask(names ...string) core.TaskFunc {
	if len(names) == 0 {
		names = m.Names()
	} else {
		m.mu.Lock()
		for _, name := range names {
			m.lookupLocked(name)
		}
		m.mu.Unlock()
	}

	return func(args ...any) core.Event {
		switch m.aggregateStatus(names) {
		case StatusFailed:
			return core.EventQuit
		case StatusPending:
			return core.EventFlipRepeat
		default:
			return core.EventNext
		}
	}
}

// aggregateStatus folds the named resources into one status: failed
// dominates, then pending, then ready.
func (m *Manager) aggregateStatus(names []string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg := StatusReady
	for _, name := range names {
		switch m.lookupLocked(name).status {
		case StatusFailed:
			return StatusFailed
		case StatusPending:
			agg = StatusPending
		}
	}
	return agg
}
