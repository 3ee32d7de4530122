package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/perceptlab/go-frame-scheduler/core"
)

// StatsProvider provides current scheduler stats snapshots.
// *core.Scheduler satisfies it.
type StatsProvider interface {
	Stats() core.SchedulerStats
}

// StatsPoller periodically exports scheduler Stats() snapshots into
// Prometheus gauges. It complements the push-style MetricsExporter with
// point-in-time state: queue depth, sticky slot, lifecycle.
type StatsPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]StatsProvider

	schedulerQueued  *prom.GaugeVec
	schedulerSticky  *prom.GaugeVec
	schedulerTasks   *prom.GaugeVec
	schedulerFlipped *prom.GaugeVec
	schedulerRunning *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewStatsPoller creates a stats poller and registers its collectors.
func NewStatsPoller(reg prom.Registerer, interval time.Duration) (*StatsPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	queued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "framescheduler",
		Name:      "scheduler_queued_tasks",
		Help:      "Queued entries per scheduler snapshot.",
	}, []string{"scheduler"})
	sticky := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "framescheduler",
		Name:      "scheduler_sticky_task",
		Help:      "Whether a task is held for repetition (1=held, 0=free).",
	}, []string{"scheduler"})
	tasks := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "framescheduler",
		Name:      "scheduler_tasks_run",
		Help:      "Task invocation count snapshot.",
	}, []string{"scheduler"})
	flipped := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "framescheduler",
		Name:      "scheduler_frames_flipped",
		Help:      "Rendered frame count snapshot.",
	}, []string{"scheduler"})
	running := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "framescheduler",
		Name:      "scheduler_running",
		Help:      "Scheduler lifecycle state (1=running, 0=stopped).",
	}, []string{"scheduler"})

	var err error
	if queued, err = registerCollector(reg, queued); err != nil {
		return nil, err
	}
	if sticky, err = registerCollector(reg, sticky); err != nil {
		return nil, err
	}
	if tasks, err = registerCollector(reg, tasks); err != nil {
		return nil, err
	}
	if flipped, err = registerCollector(reg, flipped); err != nil {
		return nil, err
	}
	if running, err = registerCollector(reg, running); err != nil {
		return nil, err
	}

	return &StatsPoller{
		interval:         interval,
		schedulers:       make(map[string]StatsProvider),
		schedulerQueued:  queued,
		schedulerSticky:  sticky,
		schedulerTasks:   tasks,
		schedulerFlipped: flipped,
		schedulerRunning: running,
	}, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *StatsPoller) AddScheduler(name string, provider StatsProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *StatsPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *StatsPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *StatsPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *StatsPoller) collectOnce() {
	p.schedulersMu.RLock()
	for name, provider := range p.schedulers {
		stats := provider.Stats()
		p.schedulerQueued.WithLabelValues(name).Set(float64(stats.QueuedTasks))
		if stats.StickyTask {
			p.schedulerSticky.WithLabelValues(name).Set(1)
		} else {
			p.schedulerSticky.WithLabelValues(name).Set(0)
		}
		p.schedulerTasks.WithLabelValues(name).Set(float64(stats.TasksRun))
		p.schedulerFlipped.WithLabelValues(name).Set(float64(stats.FramesFlipped))
		if stats.Status == core.StatusRunning {
			p.schedulerRunning.WithLabelValues(name).Set(1)
		} else {
			p.schedulerRunning.WithLabelValues(name).Set(0)
		}
	}
	p.schedulersMu.RUnlock()
}
