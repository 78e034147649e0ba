package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	familySyncCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "family_results_total",
		Help:      "Per-family sync outcomes partitioned by status.",
	}, []string{"family", "status"})
	upsertCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "persistence",
		Name:      "upserts_total",
		Help:      "Record upserts partitioned by family and outcome.",
	}, []string{"family", "outcome"})
	shapeMismatchCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "resolve",
		Name:      "shape_mismatches_total",
		Help:      "Payloads that arrived but yielded no resolvable fields.",
	}, []string{"family"})
	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "last_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed sync run.",
	})
)

func init() {
	prometheus.MustRegister(familySyncCounter, upsertCounter, shapeMismatchCounter, lastSyncGauge)
}

// RecordFamilyResult counts one family's sync outcome.
func RecordFamilyResult(family, status string) {
	familySyncCounter.WithLabelValues(family, status).Inc()
}

// RecordUpsert counts one persisted record by create-vs-update outcome.
func RecordUpsert(family, outcome string) {
	upsertCounter.WithLabelValues(family, outcome).Inc()
}

// RecordShapeMismatch counts a payload that resolved to nothing.
func RecordShapeMismatch(family string) {
	shapeMismatchCounter.WithLabelValues(family).Inc()
}

// RecordSyncCompleted updates the sync watermark gauge.
func RecordSyncCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSyncGauge.Set(float64(ts.Unix()))
}
