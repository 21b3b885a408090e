package observability

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"health-analyzer/healthexport"
)

const namespace = "health_analyzer"

// Metrics holds the pipeline counters on a private registry. A nil *Metrics
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	samples       prometheus.Counter
	workouts      prometheus.Counter
	skipped       *prometheus.CounterVec
	orphanTracks  prometheus.Counter
	matchedTracks prometheus.Counter
	alignedRows   *prometheus.CounterVec
	runDuration   prometheus.Histogram
	cacheLookups  *prometheus.CounterVec
}

// NewMetrics registers every counter on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "samples_total",
			Help:      "Number of samples accepted from health exports.",
		}),
		workouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "workouts_total",
			Help:      "Number of workouts accepted from health exports.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "skipped_entries_total",
			Help:      "Number of export entries skipped, grouped by reason.",
		}, []string{"reason"}),
		orphanTracks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracks",
			Name:      "orphaned_total",
			Help:      "Number of tracks with no workout inside the association window.",
		}),
		matchedTracks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracks",
			Name:      "matched_total",
			Help:      "Number of tracks associated with a workout.",
		}),
		alignedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "align",
			Name:      "rows_total",
			Help:      "Number of aligned rows emitted, grouped by view.",
		}, []string{"view"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Parsed export cache lookups, grouped by result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(
		m.samples,
		m.workouts,
		m.skipped,
		m.orphanTracks,
		m.matchedTracks,
		m.alignedRows,
		m.runDuration,
		m.cacheLookups,
	)
	return m
}

// RecordExtraction adds one export's extraction statistics.
func (m *Metrics) RecordExtraction(stats healthexport.Stats) {
	if m == nil {
		return
	}
	m.samples.Add(float64(stats.Samples))
	m.workouts.Add(float64(stats.Workouts))
	for reason, n := range stats.Skipped {
		m.skipped.WithLabelValues(string(reason)).Add(float64(n))
	}
}

// RecordTracks counts association outcomes.
func (m *Metrics) RecordTracks(matched, orphaned int) {
	if m == nil {
		return
	}
	m.matchedTracks.Add(float64(matched))
	m.orphanTracks.Add(float64(orphaned))
}

// RecordAlignedRows counts rows emitted for one aligned view.
func (m *Metrics) RecordAlignedRows(view string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	m.alignedRows.WithLabelValues(view).Add(float64(rows))
}

// ObserveRun records the duration of one run in seconds.
func (m *Metrics) ObserveRun(seconds float64) {
	if m == nil {
		return
	}
	m.runDuration.Observe(seconds)
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// LogSnapshot gathers the registry and logs one line per counter sample.
// Histograms log their count and sum.
func (m *Metrics) LogSnapshot(logger *slog.Logger) error {
	if m == nil || logger == nil {
		return nil
	}
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			attrs := []any{"metric", mf.GetName()}
			attrs = append(attrs, labelAttrs(metric.GetLabel())...)
			switch {
			case metric.GetCounter() != nil:
				attrs = append(attrs, "value", metric.GetCounter().GetValue())
			case metric.GetHistogram() != nil:
				h := metric.GetHistogram()
				attrs = append(attrs, "count", h.GetSampleCount(), "sum", h.GetSampleSum())
			default:
				continue
			}
			logger.Info("metric", attrs...)
		}
	}
	return nil
}

func labelAttrs(labels []*dto.LabelPair) []any {
	sort.Slice(labels, func(i, j int) bool { return labels[i].GetName() < labels[j].GetName() })
	out := make([]any, 0, len(labels)*2)
	for _, l := range labels {
		out = append(out, strings.ToLower(l.GetName()), l.GetValue())
	}
	return out
}
