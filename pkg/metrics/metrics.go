// Package metrics holds the Prometheus instruments shared by the nickname
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation results.
const (
	GenOK        = "ok"
	GenNoData    = "no_data"
	GenInvariant = "invariant_violation"
	GenError     = "error"
)

// Feed outcomes.
const (
	FeedLearned  = "learned"
	FeedSkipped  = "skipped"
	FeedRejected = "rejected"
)

// Ingestion cycle results.
const (
	CycleOK          = "ok"
	CycleCollector   = "collector_error"
	CycleUnsupported = "unsupported"
	CycleStore       = "store_error"
)

var (
	NicknamesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zilean_nicknames_generated_total",
			Help: "Total number of generation requests by result",
		},
		[]string{"result"},
	)

	NicknamesFed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zilean_nicknames_fed_total",
			Help: "Total number of training nicknames by outcome",
		},
		[]string{"outcome"},
	)

	IngestCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zilean_ingest_cycles_total",
			Help: "Total number of collector polling cycles by result",
		},
		[]string{"result"},
	)

	ChampionsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zilean_champions_updated_total",
			Help: "Total number of champion updates written to storage",
		},
	)

	CollectorDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zilean_collector_duration_seconds",
			Help:    "Duration of collector process runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	CollectorCooldown = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zilean_collector_cooldown_seconds",
			Help: "Cooldown before the next collector run",
		},
	)
)

// RecordFeed counts n stored training nicknames with the given outcome.
func RecordFeed(outcome string, n int) {
	if n > 0 {
		NicknamesFed.WithLabelValues(outcome).Add(float64(n))
	}
}

// RecordGen counts the result of one generation request.
func RecordGen(result string) {
	NicknamesGenerated.WithLabelValues(result).Inc()
}
