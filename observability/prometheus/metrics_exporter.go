// Package prometheus exports scheduling metrics to Prometheus. The
// MetricsExporter plugs into a scheduler as its core.Metrics collaborator
// and counts task runs, flips, frame gaps and queue depths as they
// happen; the StatsPoller complements it by sampling Stats() snapshots
// on an interval.
package prometheus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/perceptlab/go-frame-scheduler/core"
)

// DefaultGapBuckets are histogram buckets for frame gaps, spanning 240 Hz
// down to 10 Hz.
var DefaultGapBuckets = []float64{0.004, 0.008, 0.0125, 0.0167, 0.020, 0.0333, 0.050, 0.100}

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// DurationBuckets are the buckets for task and flip durations.
	// Defaults to prometheus.DefBuckets.
	DurationBuckets []float64

	// GapBuckets are the buckets for frame gaps. Defaults to
	// DefaultGapBuckets.
	GapBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskRunsTotal       *prom.CounterVec
	taskDurationSeconds *prom.HistogramVec
	flipsTotal          prom.Counter
	flipDurationSeconds prom.Histogram
	frameGapSeconds     prom.Histogram
	queueDepth          *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "framescheduler"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	durationBuckets := opts.DurationBuckets
	if len(durationBuckets) == 0 {
		durationBuckets = prom.DefBuckets
	}
	gapBuckets := opts.GapBuckets
	if len(gapBuckets) == 0 {
		gapBuckets = DefaultGapBuckets
	}

	runsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_runs_total",
		Help:      "Total task invocations by resulting event.",
	}, []string{"scheduler", "event"})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task invocation duration in seconds.",
		Buckets:   durationBuckets,
	}, []string{"scheduler"})
	flips := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "flips_total",
		Help:      "Total render flips.",
	})
	flipDuration := prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "flip_duration_seconds",
		Help:      "Render flip duration in seconds.",
		Buckets:   durationBuckets,
	})
	frameGap := prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "frame_gap_seconds",
		Help:      "Time between consecutive driver passes in seconds.",
		Buckets:   gapBuckets,
	})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current queue depth per scheduler.",
	}, []string{"scheduler"})

	var err error
	if runsVec, err = registerCollector(reg, runsVec); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if flips, err = registerCollector(reg, flips); err != nil {
		return nil, err
	}
	if flipDuration, err = registerCollector(reg, flipDuration); err != nil {
		return nil, err
	}
	if frameGap, err = registerCollector(reg, frameGap); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskRunsTotal:       runsVec,
		taskDurationSeconds: durationVec,
		flipsTotal:          flips,
		flipDurationSeconds: flipDuration,
		frameGapSeconds:     frameGap,
		queueDepth:          queueDepthVec,
	}, nil
}

// RecordTaskRun records one task invocation and its duration.
func (m *MetricsExporter) RecordTaskRun(scheduler string, event core.Event, duration time.Duration) {
	if m == nil {
		return
	}
	name := normalizeLabel(scheduler, "unknown")
	m.taskRunsTotal.WithLabelValues(name, eventLabel(event)).Inc()
	m.taskDurationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}

// RecordFlip records one render call and its duration.
func (m *MetricsExporter) RecordFlip(duration time.Duration) {
	if m == nil {
		return
	}
	m.flipsTotal.Inc()
	m.flipDurationSeconds.Observe(duration.Seconds())
}

// RecordFrameGap records the time between consecutive driver passes.
func (m *MetricsExporter) RecordFrameGap(gap time.Duration) {
	if m == nil {
		return
	}
	m.frameGapSeconds.Observe(gap.Seconds())
}

// RecordQueueDepth records a scheduler's queue depth.
func (m *MetricsExporter) RecordQueueDepth(scheduler string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(scheduler, "unknown")).Set(float64(depth))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func eventLabel(event core.Event) string {
	return strings.ToLower(event.String())
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
