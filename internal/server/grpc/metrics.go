package grpc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters exported by the credential service.
type Metrics struct {
	AuthAttempts *prometheus.CounterVec
	UserWrites   *prometheus.CounterVec
}

// NewMetrics creates the service counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuthAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finkeeper_auth_attempts_total",
			Help: "Authentication attempts by result",
		}, []string{"result"}),
		UserWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finkeeper_user_writes_total",
			Help: "User create and update calls by operation and result",
		}, []string{"op", "result"}),
	}
}

// NewRegistry returns a registry with the Go and process collectors installed.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// MetricsHandler serves the metrics gathered by g in the Prometheus text format.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

func (m *Metrics) authAttempt(result string) {
	if m != nil {
		m.AuthAttempts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) userWrite(op, result string) {
	if m != nil {
		m.UserWrites.WithLabelValues(op, result).Inc()
	}
}
