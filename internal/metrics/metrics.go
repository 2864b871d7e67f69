// Package metrics exposes catalog counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the catalog collectors. A nil *Recorder records nothing.
type Recorder struct {
	conflicts      *prometheus.CounterVec
	cascades       *prometheus.CounterVec
	probeFailures  prometheus.Counter
	txAborts       *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunevault",
			Name:      "conflicts_total",
			Help:      "Requests rejected by a uniqueness rule, by error code.",
		}, []string{"code"}),
		cascades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunevault",
			Name:      "cascade_deletes_total",
			Help:      "Records soft-deleted as dependents of a deleted parent, by kind.",
		}, []string{"kind"}),
		probeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tunevault",
			Name:      "probe_failures_total",
			Help:      "Media streams whose duration could not be read.",
		}),
		txAborts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunevault",
			Name:      "tx_aborts_total",
			Help:      "Units of work rolled back, by operation.",
		}, []string{"op"}),
		requestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tunevault",
			Name:      "grpc_request_duration_seconds",
			Help:      "Time spent processing gRPC requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
}

// Conflict counts a rejected duplicate.
func (r *Recorder) Conflict(code string) {
	if r == nil {
		return
	}
	r.conflicts.WithLabelValues(code).Inc()
}

// Cascade counts n dependents removed along with their parent.
func (r *Recorder) Cascade(kind string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.cascades.WithLabelValues(kind).Add(float64(n))
}

// ProbeFailure counts a tolerated metadata probe failure.
func (r *Recorder) ProbeFailure() {
	if r == nil {
		return
	}
	r.probeFailures.Inc()
}

// TxAbort counts a rolled back unit of work.
func (r *Recorder) TxAbort(op string) {
	if r == nil {
		return
	}
	r.txAborts.WithLabelValues(op).Inc()
}

// ObserveRequest records a finished RPC.
func (r *Recorder) ObserveRequest(method, code string, took time.Duration) {
	if r == nil {
		return
	}
	r.requestSeconds.WithLabelValues(method, code).Observe(took.Seconds())
}

// NewServer returns an HTTP server exposing g on /metrics.
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
