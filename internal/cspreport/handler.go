package cspreport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/velstore/storefront-edge/internal/httputil"
	"github.com/velstore/storefront-edge/internal/logging"
	"github.com/velstore/storefront-edge/internal/metrics"
)

// Store persists reports
type Store interface {
	Save(ctx context.Context, report *Report) error
	ListRecent(ctx context.Context, limit int) ([]Report, error)
}

// Limiter bounds submissions per client
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Handler contains HTTP handlers for the CSP report endpoints
type Handler struct {
	store    Store
	limiter  Limiter
	logger   *logging.Logger
	maxBytes int64
}

func NewHandler(store Store, limiter Limiter, logger *logging.Logger, maxBytes int64) *Handler {
	return &Handler{
		store:    store,
		limiter:  limiter,
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// Submit accepts a CSP violation report from a browser.
// @Summary      Submit CSP violation report
// @Description  Accepts a browser-generated Content-Security-Policy violation report
// @Tags         csp
// @Accept       json
// @Success      204
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      413 {object} httputil.ErrorResponse
// @Failure      429 {object} httputil.ErrorResponse
// @Router       /api/csp-report [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	allowed, err := h.limiter.Allow(r.Context(), "csp-report:"+ip)
	if err != nil {
		// Rate limiting is best effort; an unreachable limiter must not
		// drop reports.
		h.logger.Warn("rate limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		metrics.RateLimitedTotal.Inc()
		httputil.RespondErrorWithCode(w, "too many reports", httputil.CodeRateLimited, http.StatusTooManyRequests)
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.RespondErrorWithCode(w, "report too large", httputil.CodePayloadTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		httputil.RespondErrorWithCode(w, "failed to read body", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		httputil.RespondErrorWithCode(w, "malformed report", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	report := &Report{
		ID:                uuid.New(),
		DocumentURI:       p.Body.DocumentURI,
		BlockedURI:        p.Body.BlockedURI,
		ViolatedDirective: p.Body.ViolatedDirective,
		Raw:               raw,
		ClientIP:          ip,
		ReceivedAt:        time.Now().UTC(),
	}

	if err := h.store.Save(r.Context(), report); err != nil {
		h.logger.Error("failed to store csp report", "error", err)
		httputil.RespondError(w, "failed to store report", http.StatusInternalServerError)
		return
	}

	metrics.CSPReportsTotal.Inc()
	// The request-scoped logger carries the request ID and header bucket
	logging.GetLoggerFromContext(r.Context()).Info("csp violation reported",
		"document_uri", report.DocumentURI,
		"blocked_uri", report.BlockedURI,
		"violated_directive", report.ViolatedDirective,
	)

	w.WriteHeader(http.StatusNoContent)
}

// ListResponse wraps the report listing
type ListResponse struct {
	Reports []Report `json:"reports"`
	Count   int      `json:"count"`
}

// List returns recent reports for operators.
// @Summary      List recent CSP reports
// @Tags         csp
// @Produce      json
// @Param        limit query int false "maximum reports to return" default(50)
// @Security     BearerAuth
// @Success      200 {object} ListResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /api/admin/csp-reports [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.RespondErrorWithCode(w, "invalid limit", httputil.CodeInvalidRequest, http.StatusBadRequest)
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	reports, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list csp reports", "error", err)
		httputil.RespondError(w, "failed to list reports", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, ListResponse{Reports: reports, Count: len(reports)}, http.StatusOK)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP middleware may have already stripped the port
		return r.RemoteAddr
	}
	return host
}
