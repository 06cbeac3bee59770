package httpclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes Docmosis call outcomes to Prometheus.
//
// Register it with WithPrometheusRegisterer, or directly:
//
//	collector := httpclient.NewCollector()
//	prometheus.MustRegister(collector)
//
// Metrics:
//   - docmosis_calls_total{service, outcome}
//   - docmosis_call_tries{service}
//   - docmosis_call_duration_seconds{service, outcome}
//
// outcome is one of success, failure, exhausted or error.
type Collector struct {
	calls    *prometheus.CounterVec
	tries    *prometheus.HistogramVec
	duration *prometheus.HistogramVec
}

// Compile-time interface check.
var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates an unregistered Collector.
func NewCollector() *Collector {
	return &Collector{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docmosis",
			Name:      "calls_total",
			Help:      "Docmosis calls by service and outcome.",
		}, []string{"service", "outcome"}),
		tries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docmosis",
			Name:      "call_tries",
			Help:      "Attempts made per Docmosis call.",
			Buckets:   []float64{1, 2, 3, 5, 10},
		}, []string{"service"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docmosis",
			Name:      "call_duration_seconds",
			Help:      "Duration of Docmosis calls including retry waits.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"service", "outcome"}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.calls.Describe(ch)
	c.tries.Describe(ch)
	c.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.calls.Collect(ch)
	c.tries.Collect(ch)
	c.duration.Collect(ch)
}

// observe records a finished call. It is a no-op on a nil Collector.
func (c *Collector) observe(service, outcome string, tries int, duration time.Duration) {
	if c == nil {
		return
	}
	if service == "" {
		service = "unknown"
	}
	c.calls.WithLabelValues(service, outcome).Inc()
	c.tries.WithLabelValues(service).Observe(float64(tries))
	c.duration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}
