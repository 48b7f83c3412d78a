package evidence

import (
	"context"

	"github.com/hakim/threatscore/internal/models"
)

// The collector talks to external providers only through these interfaces
// so the core has no hard dependency on any concrete service. All
// implementations must be safe for concurrent use across scans.

// DomainRegistryLookup answers WHOIS/RDAP queries.
type DomainRegistryLookup interface {
	Lookup(ctx context.Context, hostname string) (*models.WHOISEvidence, error)
}

// DNSResolver performs record-type queries and derives mail-security
// posture (SPF/DMARC presence) from TXT records.
type DNSResolver interface {
	Resolve(ctx context.Context, hostname string) (*models.DNSEvidence, error)
}

// TLSInspector examines the target's certificate chain.
type TLSInspector interface {
	Inspect(ctx context.Context, hostname string) (*models.TLSEvidence, error)
}

// RenderOptions controls a page render.
type RenderOptions struct {
	// CaptureScreenshot asks for a screenshot alongside the DOM.
	CaptureScreenshot bool

	// TemplateOnly asks for a lightweight fetch sufficient for parking
	// template checks: no script execution, no screenshot.
	TemplateOnly bool
}

// RenderResult is what a renderer produced; either part may be nil when
// the corresponding capture failed or was not requested.
type RenderResult struct {
	HTML       *models.HTMLEvidence
	Screenshot *models.ScreenshotEvidence
}

// PageRenderer loads a URL in a headless browser (or lighter fetcher) and
// returns the DOM-derived evidence, subject to its own timeout.
type PageRenderer interface {
	Render(ctx context.Context, url string, opts RenderOptions) (*RenderResult, error)
}
