// Package proxy forwards storefront traffic to the upstream application.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	edgehttputil "github.com/velstore/storefront-edge/internal/httputil"
	"github.com/velstore/storefront-edge/internal/logging"
	"github.com/velstore/storefront-edge/internal/metrics"
)

// New returns a reverse proxy to the upstream storefront. Response headers
// have already been decorated by the header-policy middleware by the time the
// proxied response is written.
func New(upstream *url.URL, logger *logging.Logger) http.Handler {
	p := httputil.NewSingleHostReverseProxy(upstream)

	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		metrics.UpstreamErrorsTotal.Inc()
		logger.Error("upstream request failed",
			"path", r.URL.Path,
			"upstream", upstream.Host,
			"error", err,
		)
		edgehttputil.RespondErrorWithCode(w, "upstream unavailable", edgehttputil.CodeUpstreamFailed, http.StatusBadGateway)
	}

	return p
}
