// Package intel aggregates reputation lookups across the configured
// threat-intel sources and derives the gate decision that can
// short-circuit a scan before any probing happens.
package intel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

// Source is one external reputation feed. Implementations must be safe
// for concurrent use across scans.
type Source interface {
	// Name identifies the source in findings and logs.
	Name() string

	// Tier classifies the source's authoritativeness (1=premium,
	// 2=community, 3=supplementary).
	Tier() int

	// Query returns the source's findings for the URL. A timeout or error
	// is absorbed by the aggregator as an empty result.
	Query(ctx context.Context, rawURL, hostname string) ([]models.TIFinding, error)
}

// cacheEntry is a summarized lookup with its creation time for TTL checks.
type cacheEntry struct {
	summary models.TISummary
	at      time.Time
}

// Aggregator fans a lookup out to every source concurrently, each bounded
// by its own timeout, and merges the findings into a TISummary.
type Aggregator struct {
	sources []Source
	cfg     config.IntelConfig
	logger  *slog.Logger
	cache   *lru.Cache[string, cacheEntry]
	now     func() time.Time
}

// New builds an Aggregator over the given sources.
func New(sources []Source, cfg config.IntelConfig, logger *slog.Logger) (*Aggregator, error) {
	cache, err := lru.New[string, cacheEntry](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("intel: creating cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		sources: sources,
		cfg:     cfg,
		logger:  logger,
		cache:   cache,
		now:     time.Now,
	}, nil
}

// Lookup queries every source concurrently and merges the results.
//
// Failure semantics: a source that errors, times out or panics contributes
// nothing; a scan is never failed by its intel sources. Aggregation waits
// for each source at most its individual budget, never on a straggler
// beyond it.
func (a *Aggregator) Lookup(ctx context.Context, req models.ScanRequest) models.TISummary {
	if entry, ok := a.cache.Get(req.Hostname); ok {
		if a.cfg.CacheTTL <= 0 || a.now().Sub(entry.at) < a.cfg.CacheTTL {
			return entry.summary
		}
		a.cache.Remove(req.Hostname)
	}

	var (
		mu       sync.Mutex
		findings []models.TIFinding
	)

	p := pool.New().WithContext(ctx)
	for _, src := range a.sources {
		p.Go(func(ctx context.Context) error {
			got := a.queryOne(ctx, src, req)
			if len(got) == 0 {
				return nil
			}
			mu.Lock()
			findings = append(findings, got...)
			mu.Unlock()
			return nil
		})
	}
	// Source failures never surface: queryOne absorbs them.
	_ = p.Wait()

	window := time.Duration(a.cfg.RecencyWindowDays) * 24 * time.Hour
	summary := models.SummarizeFindings(findings, a.now(), window)

	a.cache.Add(req.Hostname, cacheEntry{summary: summary, at: a.now()})
	return summary
}

// queryOne runs a single source under its own timeout, converting errors
// and panics into empty results.
func (a *Aggregator) queryOne(ctx context.Context, src Source, req models.ScanRequest) (out []models.TIFinding) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("intel source panicked", "source", src.Name(), "panic", r)
			out = nil
		}
	}()

	srcCtx, cancel := context.WithTimeout(ctx, a.cfg.SourceTimeout)
	defer cancel()

	findings, err := src.Query(srcCtx, req.URL, req.Hostname)
	if err != nil {
		a.logger.Debug("intel source failed", "source", src.Name(), "error", err)
		return nil
	}

	// Stamp the source identity so a misbehaving feed cannot impersonate a
	// higher tier.
	for i := range findings {
		findings[i].Source = src.Name()
		findings[i].Tier = src.Tier()
	}
	return findings
}

// Gate decides whether the summary alone is terminal. It returns the rule
// name, the terminal band and true when the orchestrator should
// short-circuit the rest of the pipeline: two or more tier-1 hits, or a
// single tier-1 hit of critical severity.
func Gate(summary models.TISummary) (rule string, band models.RiskBand, terminal bool) {
	switch {
	case summary.DualTier1 || summary.Tier1Hits >= 2:
		return "DUAL_TIER1_HITS", models.BandF, true
	case summary.CriticalTier1:
		return "CRITICAL_TIER1_HIT", models.BandF, true
	default:
		return "", "", false
	}
}
