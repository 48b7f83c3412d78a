// Package evidence gathers WHOIS, DNS, TLS, HTML and screenshot evidence
// for a scan, scoped to what the reachability branch makes obtainable.
package evidence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

// Deps are the collaborators the collector fans out to. Any of them may be
// nil, in which case the corresponding evidence is simply never collected.
type Deps struct {
	Registry DomainRegistryLookup
	Resolver DNSResolver
	TLS      TLSInspector
	Renderer PageRenderer
}

// Collector is the branch-aware evidence gatherer.
type Collector struct {
	deps   Deps
	cfg    config.EvidenceConfig
	logger *slog.Logger
}

// New builds a Collector.
func New(deps Deps, cfg config.EvidenceConfig, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{deps: deps, cfg: cfg, logger: logger}
}

// scope describes which collectors a reachability branch permits.
type scope struct {
	whois, dns, tls, render bool

	// templateOnly downgrades rendering to the lightweight parking-template
	// fetch used for PARKED targets.
	templateOnly bool
}

// scopeFor maps a branch to its collection scope:
//
//	ONLINE            full collection
//	OFFLINE/SINKHOLE  WHOIS + passive DNS only
//	PARKED            WHOIS + lightweight HTML template check
//	WAF               WHOIS + DNS (HTML is unobtainable behind a challenge)
func scopeFor(state models.Reachability) scope {
	switch state {
	case models.ReachOnline:
		return scope{whois: true, dns: true, tls: true, render: true}
	case models.ReachParked:
		return scope{whois: true, render: true, templateOnly: true}
	case models.ReachWAF:
		return scope{whois: true, dns: true}
	default: // OFFLINE, SINKHOLE
		return scope{whois: true, dns: true}
	}
}

// Collect gathers all evidence the branch permits, fanning the
// sub-collectors out concurrently with independent timeouts. A single
// collector's failure yields an absent field, never a pipeline failure,
// and does not cancel its siblings.
func (c *Collector) Collect(ctx context.Context, req models.ScanRequest, reach models.ReachabilityResult) models.EvidenceBundle {
	sc := scopeFor(reach.State)

	var (
		mu     sync.Mutex
		bundle models.EvidenceBundle
	)

	var wg conc.WaitGroup

	if sc.whois && c.deps.Registry != nil {
		wg.Go(func() {
			if rec := collectOne(ctx, c.cfg.CollectorTimeout, c.logger, "whois", func(ctx context.Context) (*models.WHOISEvidence, error) {
				return c.deps.Registry.Lookup(ctx, req.Hostname)
			}); rec != nil {
				mu.Lock()
				bundle.WHOIS = rec
				mu.Unlock()
			}
		})
	}

	if sc.dns && c.deps.Resolver != nil {
		wg.Go(func() {
			if rec := collectOne(ctx, c.cfg.CollectorTimeout, c.logger, "dns", func(ctx context.Context) (*models.DNSEvidence, error) {
				return c.deps.Resolver.Resolve(ctx, req.Hostname)
			}); rec != nil {
				mu.Lock()
				bundle.DNS = rec
				mu.Unlock()
			}
		})
	}

	if sc.tls && c.deps.TLS != nil {
		wg.Go(func() {
			if rec := collectOne(ctx, c.cfg.CollectorTimeout, c.logger, "tls", func(ctx context.Context) (*models.TLSEvidence, error) {
				return c.deps.TLS.Inspect(ctx, req.Hostname)
			}); rec != nil {
				mu.Lock()
				bundle.TLS = rec
				mu.Unlock()
			}
		})
	}

	if sc.render && c.deps.Renderer != nil {
		wg.Go(func() {
			opts := RenderOptions{
				CaptureScreenshot: !sc.templateOnly && !req.Options.SkipScreenshot,
				TemplateOnly:      sc.templateOnly,
			}
			if rec := collectOne(ctx, c.cfg.RenderTimeout, c.logger, "render", func(ctx context.Context) (*RenderResult, error) {
				return c.deps.Renderer.Render(ctx, req.URL, opts)
			}); rec != nil {
				mu.Lock()
				bundle.HTML = rec.HTML
				bundle.Screenshot = rec.Screenshot
				mu.Unlock()
			}
		})
	}

	// conc.WaitGroup re-panics a child panic on Wait; collectOne already
	// recovers inside each child, so this only waits.
	wg.Wait()

	return bundle
}

// collectOne runs a single sub-collector under its own timeout, absorbing
// errors and panics into a nil (absent) record.
func collectOne[T any](ctx context.Context, timeout time.Duration, logger *slog.Logger, name string, fn func(context.Context) (*T, error)) (rec *T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("evidence collector panicked", "collector", name, "panic", r)
			rec = nil
		}
	}()

	subCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rec, err := fn(subCtx)
	if err != nil {
		logger.Debug("evidence collector failed", "collector", name, "error", err)
		return nil
	}
	return rec
}
