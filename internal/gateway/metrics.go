package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wired per SPEC_FULL.md's domain-stack expansion: dispatcher request
// counts by outcome, and profile resolve failures.
var (
	dispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mcpgateway_dispatch_requests_total",
		Help: "Total /mcp requests handled by the HTTP dispatcher, by outcome.",
	}, []string{"outcome"})

	resolveFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mcpgateway_resolve_failures_total",
		Help: "Total profile resolution failures returned to clients as invalid-request.",
	})
)

func init() {
	prometheus.MustRegister(dispatchTotal, resolveFailuresTotal)
}

// recordDispatch increments the dispatch counter for one outcome label
// ("ok", "method_not_allowed", "missing_profile", "resolve_failed", "panic").
func recordDispatch(outcome string) {
	dispatchTotal.WithLabelValues(outcome).Inc()
	if outcome == "resolve_failed" {
		resolveFailuresTotal.Inc()
	}
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
