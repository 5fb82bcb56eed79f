// Package metrics exposes quote collection counters to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quotebook"

// Quotes implements ports.QuoteMetrics with Prometheus collectors.
type Quotes struct {
	added      *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	syncs      *prometheus.CounterVec
	syncErrors prometheus.Counter
	size       prometheus.Gauge
}

// NewQuotes creates the collectors and registers them with reg.
func NewQuotes(reg prometheus.Registerer) *Quotes {
	q := &Quotes{
		added: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_added_total",
			Help:      "Quotes added to the collection, by source.",
		}, []string{"source"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_rejected_total",
			Help:      "Quotes rejected by validation, by source and reason.",
		}, []string{"source", "reason"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Completed syncs with the remote source.",
		}, []string{"changed"}),
		syncErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_errors_total",
			Help:      "Syncs that failed to fetch the remote list.",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_size",
			Help:      "Number of quotes after the last sync.",
		}),
	}

	reg.MustRegister(q.added, q.rejected, q.syncs, q.syncErrors, q.size)

	return q
}

// QuoteAdded counts a quote accepted from source ("add" or "import").
func (q *Quotes) QuoteAdded(source string) {
	q.added.WithLabelValues(source).Inc()
}

// QuoteRejected counts a quote rejected from source.
func (q *Quotes) QuoteRejected(source, reason string) {
	q.rejected.WithLabelValues(source, reason).Inc()
}

// SyncCompleted records a successful sync and the resulting collection size.
func (q *Quotes) SyncCompleted(changed bool, size int) {
	q.syncs.WithLabelValues(strconv.FormatBool(changed)).Inc()
	q.size.Set(float64(size))
}

// SyncFailed counts a sync whose fetch failed.
func (q *Quotes) SyncFailed() {
	q.syncErrors.Inc()
}
