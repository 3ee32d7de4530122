package prometheus

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/perceptlab/go-frame-scheduler/core"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("framescheduler", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTaskRun("root", core.EventFlipNext, 5*time.Millisecond)
	exporter.RecordTaskRun("root", core.EventNext, time.Millisecond)
	exporter.RecordFlip(2 * time.Millisecond)
	exporter.RecordFrameGap(16 * time.Millisecond)
	exporter.RecordQueueDepth("root", 7)

	flipNextRuns := testutil.ToFloat64(exporter.taskRunsTotal.WithLabelValues("root", "flip_next"))
	if flipNextRuns != 1 {
		t.Fatalf("flip_next runs = %v, want 1", flipNextRuns)
	}
	nextRuns := testutil.ToFloat64(exporter.taskRunsTotal.WithLabelValues("root", "next"))
	if nextRuns != 1 {
		t.Fatalf("next runs = %v, want 1", nextRuns)
	}

	queueDepth := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("root"))
	if queueDepth != 7 {
		t.Fatalf("queue depth = %v, want 7", queueDepth)
	}

	flips := testutil.ToFloat64(exporter.flipsTotal)
	if flips != 1 {
		t.Fatalf("flips total = %v, want 1", flips)
	}

	durationCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("root"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if durationCount != 2 {
		t.Fatalf("duration sample count = %d, want 2", durationCount)
	}

	gapCount, err := histogramSampleCount(exporter.frameGapSeconds)
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if gapCount != 1 {
		t.Fatalf("frame gap sample count = %d, want 1", gapCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("framescheduler", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("framescheduler", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordFlip(time.Millisecond)
	second.RecordFlip(time.Millisecond)

	got := testutil.ToFloat64(first.flipsTotal)
	if got != 2 {
		t.Fatalf("shared flips counter = %v, want 2", got)
	}
}

func TestMetricsExporter_EmptySchedulerLabelFallsBack(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordQueueDepth("", 3)

	got := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("unknown"))
	if got != 3 {
		t.Fatalf("queue depth for empty scheduler = %v, want 3", got)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
