package policy

import "strings"

// cspDirectives are the fixed Content-Security-Policy clauses for the
// storefront. The script and style allowances reflect what a server-rendered
// React frontend needs; image and connect sources stay broad because product
// media lives on third-party CDNs.
var cspDirectives = []string{
	"default-src 'self'",
	"script-src 'self' 'unsafe-inline' 'unsafe-eval'",
	"style-src 'self' 'unsafe-inline'",
	"font-src 'self' data:",
	"img-src 'self' data: blob: https:",
	"media-src 'self'",
	"connect-src 'self' https:",
	"frame-src 'self'",
	"worker-src 'self' blob:",
	"child-src 'self'",
	"object-src 'none'",
	"base-uri 'self'",
	"form-action 'self'",
	"frame-ancestors 'none'",
	"upgrade-insecure-requests",
}

// BuildCSP assembles the Content-Security-Policy header value. A non-empty
// reportURI appends a report-uri clause; the value is not validated, it is the
// operator's responsibility to supply a well-formed target.
func BuildCSP(reportURI string) string {
	directives := cspDirectives
	if reportURI != "" {
		directives = append(append([]string{}, cspDirectives...), "report-uri "+reportURI)
	}
	return strings.Join(directives, "; ")
}
