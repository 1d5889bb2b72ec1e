package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sepa-leadgen/internal/model"
)

// Histogram bucket layout for stage durations: 1ms doubling to ~16s.
const (
	bucketStart1ms = 0.001
	bucketFactor2  = 2
	bucketCount15  = 15
)

// Metrics contains Prometheus metrics for pipeline runs.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal            *prometheus.CounterVec
	stageDurationSeconds *prometheus.HistogramVec
	recordsTotal         *prometheus.CounterVec
	mergeMatchesTotal    *prometheus.CounterVec
	leadsByTier          *prometheus.GaugeVec
}

// NewMetrics creates and registers pipeline metrics on registry.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgen_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"}, // success, error
	)

	m.stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadgen_pipeline_stage_duration_seconds",
			Help:    "Time taken by each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(bucketStart1ms, bucketFactor2, bucketCount15),
		},
		[]string{"stage"},
	)

	m.recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgen_pipeline_records_total",
			Help: "Records seen per pipeline stage",
		},
		[]string{"stage"}, // input, entities, signals, scores
	)

	m.mergeMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgen_merge_matches_total",
			Help: "Entities matched or left unmatched by each merger",
		},
		[]string{"merger", "result"}, // merger: sector, places; result: matched, unmatched
	)

	m.leadsByTier = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leadgen_leads_by_tier",
			Help: "Number of scored leads per tier in the last run",
		},
		[]string{"tier"},
	)
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.runsTotal.Describe(ch)
	m.stageDurationSeconds.Describe(ch)
	m.recordsTotal.Describe(ch)
	m.mergeMatchesTotal.Describe(ch)
	m.leadsByTier.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.runsTotal.Collect(ch)
	m.stageDurationSeconds.Collect(ch)
	m.recordsTotal.Collect(ch)
	m.mergeMatchesTotal.Collect(ch)
	m.leadsByTier.Collect(ch)
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRun counts a finished run.
func (m *Metrics) RecordRun(status string) {
	m.runsTotal.WithLabelValues(status).Inc()
}

// RecordStageDuration observes how long a stage took.
func (m *Metrics) RecordStageDuration(stage string, seconds float64) {
	m.stageDurationSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordRecords adds n records to a stage counter.
func (m *Metrics) RecordRecords(stage string, n int) {
	m.recordsTotal.WithLabelValues(stage).Add(float64(n))
}

// RecordMerge adds merge outcomes for one merger.
func (m *Metrics) RecordMerge(merger string, matched, unmatched int) {
	m.mergeMatchesTotal.WithLabelValues(merger, "matched").Add(float64(matched))
	m.mergeMatchesTotal.WithLabelValues(merger, "unmatched").Add(float64(unmatched))
}

// UpdateTiers sets the per-tier gauges from the latest run. Tiers absent
// from counts are dropped.
func (m *Metrics) UpdateTiers(counts map[model.Tier]int) {
	m.leadsByTier.Reset()
	for tier, n := range counts {
		m.leadsByTier.WithLabelValues(string(tier)).Set(float64(n))
	}
}
