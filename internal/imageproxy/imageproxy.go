// Package imageproxy serves the storefront's optimized-image route.
//
// It validates requests against the configured remote-host allowlist and
// responsive breakpoints, then streams the upstream image unchanged. Format
// conversion happens upstream; the gateway only enforces the allowlist and
// cache semantics.
package imageproxy

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/velstore/storefront-edge/internal/config"
	"github.com/velstore/storefront-edge/internal/httputil"
	"github.com/velstore/storefront-edge/internal/logging"
	"github.com/velstore/storefront-edge/internal/metrics"
)

const defaultQuality = 75

// Handler proxies remote images for the /_next/image route
type Handler struct {
	client *http.Client
	images config.ImagesConfig
	logger *logging.Logger
}

func NewHandler(images config.ImagesConfig, logger *logging.Logger) *Handler {
	return &Handler{
		client: &http.Client{Timeout: 15 * time.Second},
		images: images,
		logger: logger,
	}
}

// ServeHTTP handles GET /_next/image?url=&w=&q=
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("url")
	if src == "" {
		httputil.RespondErrorWithCode(w, "missing url parameter", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	target, err := url.Parse(src)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		httputil.RespondErrorWithCode(w, "url must be absolute", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	if !h.images.AllowsHost(target.Hostname()) {
		h.logger.Warn("image host not in allowlist", "host", target.Hostname())
		httputil.RespondError(w, "image host not allowed", http.StatusForbidden)
		return
	}

	width, err := strconv.Atoi(r.URL.Query().Get("w"))
	if err != nil || !h.images.AllowsWidth(width) {
		httputil.RespondErrorWithCode(w, "w must be a configured image width", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	quality := defaultQuality
	if q := r.URL.Query().Get("q"); q != "" {
		quality, err = strconv.Atoi(q)
		if err != nil || quality < 1 || quality > 100 {
			httputil.RespondErrorWithCode(w, "q must be between 1 and 100", httputil.CodeInvalidRequest, http.StatusBadRequest)
			return
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid image url", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}
	// Advertise the configured output formats so upstreams that transcode
	// serve one of them
	if len(h.images.Formats) > 0 {
		req.Header.Set("Accept", strings.Join(h.images.Formats, ",")+",image/*;q=0.8")
	} else if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		metrics.UpstreamErrorsTotal.Inc()
		h.logger.Error("image fetch failed", "host", target.Hostname(), "error", err)
		httputil.RespondErrorWithCode(w, "failed to fetch image", httputil.CodeUpstreamFailed, http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamErrorsTotal.Inc()
		httputil.RespondErrorWithCode(w, "upstream returned "+strconv.Itoa(resp.StatusCode), httputil.CodeUpstreamFailed, http.StatusBadGateway)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		httputil.RespondErrorWithCode(w, "upstream did not return an image", httputil.CodeUpstreamFailed, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("image stream interrupted", "host", target.Hostname(), "error", err)
	}
}
