package trace

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector computes the success rate, average duration, and
// p95/p99 latency percentiles spec §4.7 calls out, backed by
// Prometheus counters/histograms for scraping and an in-memory sample
// window for the percentile queries the spec asks the collector itself
// to answer (Prometheus histograms only estimate quantiles server-side
// via PromQL; a direct Percentile() query needs raw samples), grounded
// on the teacher's observability.Metrics promauto-registered shape.
type MetricsCollector struct {
	RunCounter    *prometheus.CounterVec   // labels: status (success|failure|cancelled)
	RunDuration   *prometheus.HistogramVec // labels: status
	ToolCounter   *prometheus.CounterVec   // labels: tool_name, status
	ToolDuration  *prometheus.HistogramVec // labels: tool_name

	mu      sync.Mutex
	samples []time.Duration
	success int
	total   int
}

// NewMetricsCollector registers and returns a MetricsCollector. Callers
// embedding this in a test binary multiple times should use a fresh
// prometheus.Registry via NewMetricsCollectorWith to avoid
// "duplicate metrics collector registration" panics from promauto's
// default registry.
func NewMetricsCollector() *MetricsCollector {
	return newMetricsCollector(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWith registers against a caller-supplied registerer,
// useful for tests that want an isolated registry.
func NewMetricsCollectorWith(reg prometheus.Registerer) *MetricsCollector {
	return newMetricsCollector(reg)
}

func newMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)
	return &MetricsCollector{
		RunCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_run_total",
			Help: "Total number of agent runs by terminal status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentcore_run_duration_seconds",
			Help:    "Duration of agent runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"status"}),
		ToolCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_tool_executions_total",
			Help: "Total number of tool executions by tool name and status",
		}, []string{"tool_name", "status"}),
		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentcore_tool_execution_duration_seconds",
			Help:    "Duration of tool executions in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"tool_name"}),
	}
}

// RecordRun records one top-level run's outcome and wall time.
func (m *MetricsCollector) RecordRun(status string, d time.Duration) {
	m.RunCounter.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(d.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, d)
	m.total++
	if status == "success" {
		m.success++
	}
}

// RecordTool records one tool execution's outcome and duration.
func (m *MetricsCollector) RecordTool(toolName, status string, d time.Duration) {
	m.ToolCounter.WithLabelValues(toolName, status).Inc()
	m.ToolDuration.WithLabelValues(toolName).Observe(d.Seconds())
}

// SuccessRate returns the fraction of recorded runs that succeeded,
// 0 when no runs have been recorded.
func (m *MetricsCollector) SuccessRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.total == 0 {
		return 0
	}
	return float64(m.success) / float64(m.total)
}

// AverageDuration returns the mean duration across every recorded run.
func (m *MetricsCollector) AverageDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range m.samples {
		sum += s
	}
	return sum / time.Duration(len(m.samples))
}

// P95 returns the 95th-percentile run duration.
func (m *MetricsCollector) P95() time.Duration { return m.percentile(0.95) }

// P99 returns the 99th-percentile run duration.
func (m *MetricsCollector) P99() time.Duration { return m.percentile(0.99) }

func (m *MetricsCollector) percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.samples))
	copy(sorted, m.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
