package http

import (
	"context"
	"net/http"
	"regexp"
	"strconv"

	"github.com/velstore/storefront-edge/internal/logging"
	"github.com/velstore/storefront-edge/internal/metrics"
	"github.com/velstore/storefront-edge/internal/policy"
)

type compiledBucket struct {
	pattern string
	re      *regexp.Regexp
	headers []policy.HeaderRule
}

// HeaderPolicy returns middleware that decorates every response with the
// headers of each matching route bucket, in bucket order. With set semantics a
// later bucket would win a header-name collision; the shipped policy never
// produces one. Requests are counted per most-specific matching bucket.
//
// An empty policy (security headers disabled) passes requests through
// untouched apart from metrics.
func HeaderPolicy(buckets []policy.RouteBucket) func(http.Handler) http.Handler {
	compiled := make([]compiledBucket, 0, len(buckets))
	for _, b := range buckets {
		compiled = append(compiled, compiledBucket{
			pattern: b.Pattern,
			re:      regexp.MustCompile("^" + b.Pattern + "$"),
			headers: b.Headers,
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			matched := "none"
			for _, b := range compiled {
				if !b.re.MatchString(r.URL.Path) {
					continue
				}
				for _, h := range b.headers {
					w.Header().Set(h.Name, h.Value)
				}
				matched = b.pattern
			}

			ctx := context.WithValue(r.Context(), logging.BucketContextKey, matched)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			metrics.RequestsTotal.WithLabelValues(matched, strconv.Itoa(sw.status)).Inc()
		})
	}
}

// statusWriter captures the response status for metrics
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
