package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findBucket(t *testing.T, buckets []RouteBucket, pattern string) RouteBucket {
	t.Helper()
	for _, b := range buckets {
		if b.Pattern == pattern {
			return b
		}
	}
	t.Fatalf("no bucket with pattern %q", pattern)
	return RouteBucket{}
}

func headerValue(b RouteBucket, name string) (string, bool) {
	for _, h := range b.Headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

func TestDisabledReturnsEmptyPolicy(t *testing.T) {
	for _, prod := range []bool{true, false} {
		for _, uri := range []string{"", "/api/csp-report", "https://reports.example.com"} {
			got := Build(Flags{IsProduction: prod, SecurityHeadersEnabled: false, CSPReportURI: uri})
			assert.Empty(t, got)
		}
	}
}

func TestEnabledEmitsAllFiveBuckets(t *testing.T) {
	buckets := Build(Flags{SecurityHeadersEnabled: true})
	require.Len(t, buckets, 5)

	patterns := make([]string, 0, len(buckets))
	for _, b := range buckets {
		patterns = append(patterns, b.Pattern)
	}
	assert.Equal(t, []string{
		PatternAllRoutes,
		PatternAPI,
		PatternUploads,
		PatternUploadWebp,
		PatternImageProxy,
	}, patterns)
}

func TestProductionHSTS(t *testing.T) {
	prod := Build(Flags{IsProduction: true, SecurityHeadersEnabled: true})
	all := findBucket(t, prod, PatternAllRoutes)

	hsts, ok := headerValue(all, "Strict-Transport-Security")
	require.True(t, ok, "production policy must include HSTS")
	assert.Equal(t, "max-age=63072000; includeSubDomains; preload", hsts)

	dev := Build(Flags{IsProduction: false, SecurityHeadersEnabled: true})
	_, ok = headerValue(findBucket(t, dev, PatternAllRoutes), "Strict-Transport-Security")
	assert.False(t, ok, "non-production policy must not include HSTS")
}

func TestOpenerPolicyPerEnvironment(t *testing.T) {
	prod := findBucket(t, Build(Flags{IsProduction: true, SecurityHeadersEnabled: true}), PatternAllRoutes)
	coop, ok := headerValue(prod, "Cross-Origin-Opener-Policy")
	require.True(t, ok)
	assert.Equal(t, "same-origin", coop)

	dev := findBucket(t, Build(Flags{IsProduction: false, SecurityHeadersEnabled: true}), PatternAllRoutes)
	coop, ok = headerValue(dev, "Cross-Origin-Opener-Policy")
	require.True(t, ok)
	assert.Equal(t, "same-origin-allow-popups", coop)
}

func TestProductionCrossOriginTriple(t *testing.T) {
	all := findBucket(t, Build(Flags{IsProduction: true, SecurityHeadersEnabled: true}), PatternAllRoutes)

	coep, ok := headerValue(all, "Cross-Origin-Embedder-Policy")
	require.True(t, ok)
	assert.Equal(t, "unsafe-none", coep)

	corp, ok := headerValue(all, "Cross-Origin-Resource-Policy")
	require.True(t, ok)
	assert.Equal(t, "cross-origin", corp)

	dev := findBucket(t, Build(Flags{IsProduction: false, SecurityHeadersEnabled: true}), PatternAllRoutes)
	_, ok = headerValue(dev, "Cross-Origin-Embedder-Policy")
	assert.False(t, ok)
	_, ok = headerValue(dev, "Cross-Origin-Resource-Policy")
	assert.False(t, ok)
}

func TestWebpBucketAlwaysTyped(t *testing.T) {
	for _, prod := range []bool{true, false} {
		webp := findBucket(t, Build(Flags{IsProduction: prod, SecurityHeadersEnabled: true}), PatternUploadWebp)
		ct, ok := headerValue(webp, "Content-Type")
		require.True(t, ok)
		assert.Equal(t, "image/webp", ct)

		cc, ok := headerValue(webp, "Cache-Control")
		require.True(t, ok)
		assert.Equal(t, "public, max-age=31536000, immutable", cc)
	}
}

func TestImageProxyAllowsAnyOrigin(t *testing.T) {
	for _, prod := range []bool{true, false} {
		img := findBucket(t, Build(Flags{IsProduction: prod, SecurityHeadersEnabled: true}), PatternImageProxy)
		acao, ok := headerValue(img, "Access-Control-Allow-Origin")
		require.True(t, ok)
		assert.Equal(t, "*", acao)
	}
}

func TestAPIRoutesNeverCached(t *testing.T) {
	api := findBucket(t, Build(Flags{SecurityHeadersEnabled: true}), PatternAPI)
	cc, ok := headerValue(api, "Cache-Control")
	require.True(t, ok)
	assert.Equal(t, "no-store, no-cache, must-revalidate", cc)
}

func TestUploadsVaryOnAccept(t *testing.T) {
	uploads := findBucket(t, Build(Flags{SecurityHeadersEnabled: true}), PatternUploads)
	vary, ok := headerValue(uploads, "Vary")
	require.True(t, ok)
	assert.Equal(t, "Accept", vary)
}

func TestNoDuplicateHeaderNamesWithinBucket(t *testing.T) {
	for _, b := range Build(Flags{IsProduction: true, SecurityHeadersEnabled: true, CSPReportURI: "/api/csp-report"}) {
		seen := map[string]bool{}
		for _, h := range b.Headers {
			assert.Falsef(t, seen[h.Name], "bucket %s repeats header %s", b.Pattern, h.Name)
			seen[h.Name] = true
		}
	}
}

// Production defaults: NODE_ENV=production with everything else unset.
func TestProductionDefaultScenario(t *testing.T) {
	all := findBucket(t, Build(Flags{
		IsProduction:           true,
		SecurityHeadersEnabled: true,
		CSPReportURI:           "/api/csp-report",
	}), PatternAllRoutes)

	_, ok := headerValue(all, "Strict-Transport-Security")
	assert.True(t, ok)

	csp, ok := headerValue(all, "Content-Security-Policy")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(csp, "report-uri /api/csp-report"))

	coop, _ := headerValue(all, "Cross-Origin-Opener-Policy")
	assert.Equal(t, "same-origin", coop)
}
