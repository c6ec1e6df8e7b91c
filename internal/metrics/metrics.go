package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RPCRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rpc_requests_total", Help: "RPC procedure calls by result code"},
		[]string{"procedure", "code"},
	)
	RPCDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpc_request_duration_seconds",
			Help:    "RPC procedure latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "upstream_requests_total", Help: "Market data provider calls"},
		[]string{"provider", "op", "result"},
	)
	ProviderUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "provider_up", Help: "1 if the last health probe of the provider succeeded"},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(RPCRequests, RPCDuration, UpstreamRequests, ProviderUp)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpstream counts one provider call.
func ObserveUpstream(provider, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	UpstreamRequests.WithLabelValues(provider, op, result).Inc()
}
