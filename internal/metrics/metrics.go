// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts proxied requests by the header bucket that
	// matched most specifically and the response status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edge_http_requests_total",
		Help: "HTTP requests handled by the gateway.",
	}, []string{"bucket", "status"})

	// CSPReportsTotal counts accepted CSP violation reports.
	CSPReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edge_csp_reports_total",
		Help: "CSP violation reports accepted.",
	})

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edge_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})

	// UpstreamErrorsTotal counts failed proxy round trips.
	UpstreamErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edge_upstream_errors_total",
		Help: "Reverse proxy round trips that failed.",
	})
)

// Handler returns the /metrics endpoint handler
func Handler() http.Handler {
	return promhttp.Handler()
}
