// Package policy computes the security header policy applied at the edge.
//
// The policy is a pure function of a small set of flags read once at startup:
// it never performs I/O and never fails, so it is safe to build once and share
// between request handlers.
package policy

// Route patterns for the header buckets. Each pattern is a full-path regular
// expression; the gateway anchors them when matching.
const (
	PatternAllRoutes  = `/(.*)`
	PatternAPI        = `/api/(.*)`
	PatternUploads    = `/uploads/(.*)`
	PatternUploadWebp = `/uploads/(.*)\.webp`
	PatternImageProxy = `/_next/image(.*)`
)

// HeaderRule is a single response header to set on matching routes.
type HeaderRule struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RouteBucket groups header rules under a shared route pattern.
type RouteBucket struct {
	Pattern string       `json:"pattern"`
	Headers []HeaderRule `json:"headers"`
}

// Flags are the environment inputs the policy depends on. They are derived
// from configuration once at process start and passed in explicitly.
type Flags struct {
	IsProduction           bool
	SecurityHeadersEnabled bool
	// CSPReportURI is appended to the CSP as a report-uri clause when
	// non-empty. Empty omits the clause.
	CSPReportURI string
}

// Build returns the ordered route buckets for the given flags. When security
// headers are disabled it returns an empty policy, the explicit opt-out escape
// hatch for operators debugging header interference.
func Build(f Flags) []RouteBucket {
	if !f.SecurityHeadersEnabled {
		return []RouteBucket{}
	}

	allRoutes := []HeaderRule{
		{Name: "X-Frame-Options", Value: "DENY"},
		{Name: "X-Content-Type-Options", Value: "nosniff"},
		{Name: "Referrer-Policy", Value: "strict-origin-when-cross-origin"},
		{Name: "Permissions-Policy", Value: "camera=(), microphone=(), geolocation=()"},
		{Name: "Content-Security-Policy", Value: BuildCSP(f.CSPReportURI)},
	}

	if f.IsProduction {
		allRoutes = append(allRoutes,
			HeaderRule{Name: "Strict-Transport-Security", Value: "max-age=63072000; includeSubDomains; preload"},
			// COEP stays relaxed so product pages can embed images from
			// third-party hosts that do not send CORP headers.
			HeaderRule{Name: "Cross-Origin-Embedder-Policy", Value: "unsafe-none"},
			HeaderRule{Name: "Cross-Origin-Opener-Policy", Value: "same-origin"},
			// CDN-hosted images must remain embeddable cross-origin.
			HeaderRule{Name: "Cross-Origin-Resource-Policy", Value: "cross-origin"},
		)
	} else {
		// Local development talks to third-party image hosts through
		// popup-based auth flows.
		allRoutes = append(allRoutes,
			HeaderRule{Name: "Cross-Origin-Opener-Policy", Value: "same-origin-allow-popups"},
		)
	}

	return []RouteBucket{
		{Pattern: PatternAllRoutes, Headers: allRoutes},
		{Pattern: PatternAPI, Headers: []HeaderRule{
			{Name: "Cache-Control", Value: "no-store, no-cache, must-revalidate"},
			{Name: "X-Content-Type-Options", Value: "nosniff"},
			{Name: "X-Frame-Options", Value: "DENY"},
		}},
		{Pattern: PatternUploads, Headers: []HeaderRule{
			{Name: "Cache-Control", Value: "public, max-age=31536000, immutable"},
			{Name: "Vary", Value: "Accept"},
		}},
		{Pattern: PatternUploadWebp, Headers: []HeaderRule{
			{Name: "Cache-Control", Value: "public, max-age=31536000, immutable"},
			{Name: "Content-Type", Value: "image/webp"},
		}},
		{Pattern: PatternImageProxy, Headers: []HeaderRule{
			{Name: "Access-Control-Allow-Origin", Value: "*"},
		}},
	}
}
