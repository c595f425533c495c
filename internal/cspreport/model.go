package cspreport

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Report is a stored CSP violation report.
//
// Browsers wrap the payload in a "csp-report" envelope; the interesting
// fields are lifted into columns and the full payload is kept as raw JSON
// for later inspection.
type Report struct {
	bun.BaseModel `bun:"table:csp_reports"`

	ID                uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	DocumentURI       string    `bun:"document_uri" json:"document_uri"`
	BlockedURI        string    `bun:"blocked_uri" json:"blocked_uri"`
	ViolatedDirective string    `bun:"violated_directive" json:"violated_directive"`
	Raw               []byte    `bun:"raw,type:jsonb" json:"-"`
	ClientIP          string    `bun:"client_ip" json:"client_ip"`
	ReceivedAt        time.Time `bun:"received_at" json:"received_at"`
}

// payload is the wire format browsers POST to the report endpoint.
type payload struct {
	Body reportBody `json:"csp-report"`
}

type reportBody struct {
	DocumentURI        string `json:"document-uri"`
	BlockedURI         string `json:"blocked-uri"`
	ViolatedDirective  string `json:"violated-directive"`
	EffectiveDirective string `json:"effective-directive"`
	OriginalPolicy     string `json:"original-policy"`
}
