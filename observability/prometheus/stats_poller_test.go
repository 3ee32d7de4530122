package prometheus

import (
	"context"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/perceptlab/go-frame-scheduler/core"
)

var _ StatsProvider = (*core.Scheduler)(nil)

type statsStub struct {
	stats core.SchedulerStats
}

func (s statsStub) Stats() core.SchedulerStats { return s.stats }

func TestStatsPoller_CollectsSchedulerStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewStatsPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewStatsPoller failed: %v", err)
	}

	poller.AddScheduler("root", statsStub{stats: core.SchedulerStats{
		Name:          "root",
		Status:        core.StatusRunning,
		QueuedTasks:   3,
		StickyTask:    true,
		TasksRun:      42,
		FramesFlipped: 7,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		queued := testutil.ToFloat64(poller.schedulerQueued.WithLabelValues("root"))
		tasks := testutil.ToFloat64(poller.schedulerTasks.WithLabelValues("root"))
		return queued == 3 && tasks == 42
	})

	if got := testutil.ToFloat64(poller.schedulerSticky.WithLabelValues("root")); got != 1 {
		t.Fatalf("sticky gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.schedulerRunning.WithLabelValues("root")); got != 1 {
		t.Fatalf("running gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.schedulerFlipped.WithLabelValues("root")); got != 7 {
		t.Fatalf("flipped gauge = %v, want 7", got)
	}
}

func TestStatsPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewStatsPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewStatsPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
