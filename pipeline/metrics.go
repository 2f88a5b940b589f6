package pipeline

import (
	"github.com/Masterminds/semver/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/teranos/refresh/errors"
)

// Metrics records run outcomes in a private registry and writes them to a
// node_exporter textfile after each run.
type Metrics struct {
	path     string
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
	lastTimestamp prometheus.Gauge
	lastDuration  prometheus.Gauge
	stageDuration *prometheus.GaugeVec
	published     *prometheus.GaugeVec
	failure       *prometheus.GaugeVec
}

// NewMetrics creates metrics written to path
func NewMetrics(path string) *Metrics {
	m := &Metrics{
		path:     path,
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refresh_runs_total",
			Help: "Pipeline runs by terminal state since the process started",
		}, []string{"result"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "refresh_last_run_success",
			Help: "1 if the last run succeeded, 0 otherwise",
		}),
		lastTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "refresh_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "refresh_last_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "refresh_last_run_stage_duration_seconds",
			Help: "Time spent in each stage of the last run",
		}, []string{"stage"}),
		published: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "refresh_published_version_info",
			Help: "Version of the published snapshot; the value is its minor component",
		}, []string{"version"}),
		failure: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "refresh_last_run_failure_info",
			Help: "Stage and error kind of the last failed run",
		}, []string{"stage", "kind"}),
	}
	m.registry.MustRegister(m.runs, m.lastSuccess, m.lastTimestamp, m.lastDuration,
		m.stageDuration, m.published, m.failure)
	return m
}

// Observe records a finished run and rewrites the textfile
func (m *Metrics) Observe(run *Run) error {
	m.runs.WithLabelValues(string(run.State)).Inc()
	m.lastTimestamp.Set(float64(run.Finished.Unix()))
	m.lastDuration.Set(run.Duration().Seconds())

	m.stageDuration.Reset()
	for stage, d := range run.StageDurations() {
		m.stageDuration.WithLabelValues(string(stage)).Set(d.Seconds())
	}

	m.failure.Reset()
	if run.Succeeded() {
		m.lastSuccess.Set(1)
		if v, err := semver.NewVersion(run.Version); err == nil {
			m.published.Reset()
			m.published.WithLabelValues(v.String()).Set(float64(v.Minor()))
		}
	} else {
		m.lastSuccess.Set(0)
		m.failure.WithLabelValues(string(run.FailedStage), errors.KindOf(run.Err)).Set(1)
	}

	if err := prometheus.WriteToTextfile(m.path, m.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", m.path)
	}
	return nil
}

// Gatherer exposes the registry, for tests and embedding
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
