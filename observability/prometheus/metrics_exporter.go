package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-feed-agent/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// Dispatcher is the value of the "dispatcher" label. Defaults to "default".
	Dispatcher      string
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	dispatcher string

	jobDurationSeconds *prom.HistogramVec
	jobFailureTotal    *prom.CounterVec
	jobRejectedTotal   *prom.CounterVec
	backlogDepth       *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "feedagent"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Job execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"dispatcher", "job_type"})
	failureVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "job_failure_total",
		Help:      "Total number of failed jobs.",
	}, []string{"dispatcher", "job_type"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "job_rejected_total",
		Help:      "Total number of rejected jobs.",
	}, []string{"dispatcher", "job_type", "reason"})
	backlogVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "backlog_depth",
		Help:      "Current number of jobs waiting for a worker.",
	}, []string{"dispatcher"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if failureVec, err = registerCollector(reg, failureVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if backlogVec, err = registerCollector(reg, backlogVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		dispatcher:         normalizeLabel(opts.Dispatcher, "default"),
		jobDurationSeconds: durationVec,
		jobFailureTotal:    failureVec,
		jobRejectedTotal:   rejectedVec,
		backlogDepth:       backlogVec,
	}, nil
}

// RecordJobDuration records job execution duration.
func (m *MetricsExporter) RecordJobDuration(jobType core.JobType, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDurationSeconds.WithLabelValues(m.dispatcher, jobType.String()).Observe(duration.Seconds())
}

// RecordJobFailure records a job whose body returned an error or panicked.
func (m *MetricsExporter) RecordJobFailure(jobType core.JobType) {
	if m == nil {
		return
	}
	m.jobFailureTotal.WithLabelValues(m.dispatcher, jobType.String()).Inc()
}

// RecordBacklogDepth records backlog depth.
func (m *MetricsExporter) RecordBacklogDepth(depth int) {
	if m == nil {
		return
	}
	m.backlogDepth.WithLabelValues(m.dispatcher).Set(float64(depth))
}

// RecordJobRejected records job rejection events.
func (m *MetricsExporter) RecordJobRejected(jobType core.JobType, reason string) {
	if m == nil {
		return
	}
	m.jobRejectedTotal.WithLabelValues(m.dispatcher, jobType.String(), normalizeLabel(reason, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
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
