package feed

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the controller's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	fetches   *prometheus.CounterVec
	duration  prometheus.Histogram
	stale     prometheus.Counter
	malformed *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activityfeed",
			Name:      "fetches_total",
			Help:      "Activity log page fetches by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "activityfeed",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of activity log page fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "activityfeed",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because a newer request was issued.",
		}),
		malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activityfeed",
			Name:      "malformed_records_total",
			Help:      "Records described with the generic sentence, by table.",
		}, []string{"table"}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.duration, m.stale, m.malformed)
	}
	return m
}

func (m *Metrics) observeFetch(start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetches.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) staleDiscarded() {
	if m == nil {
		return
	}
	m.stale.Inc()
}

func (m *Metrics) malformedRecord(table string) {
	if m == nil {
		return
	}
	m.malformed.WithLabelValues(table).Inc()
}
