// Package checks runs the configurable battery of point-scored category
// checks. Each check inspects available evidence and earns risk points;
// category totals form an evidence-based signal parallel to the ML
// verdict, never a replacement for it.
package checks

import (
	"log/slog"
	"math"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

// Input is the immutable view of a scan the checks read. Checks never
// perform I/O; everything they need was collected upstream.
type Input struct {
	Req      models.ScanRequest
	Reach    models.ReachabilityResult
	Bundle   models.EvidenceBundle
	Intel    models.TISummary
	Features models.FeatureVector
	Lists    config.ListsConfig
}

// need names the evidence class a check requires. Checks with needNone
// run on every reachability branch, reading only the URL string.
type need string

const (
	needNone       need = ""
	needWHOIS      need = "whois"
	needDNS        need = "dns"
	needTLS        need = "tls"
	needHTML       need = "html"
	needScreenshot need = "screenshot"
)

// branchAllows mirrors the evidence collector's branch scope: a check
// whose evidence class the branch never collects is skipped, not INFO.
func branchAllows(n need, state models.Reachability) bool {
	switch n {
	case needNone, needWHOIS:
		return true
	case needDNS:
		return state != models.ReachParked
	case needTLS, needScreenshot:
		return state == models.ReachOnline
	case needHTML:
		return state == models.ReachOnline || state == models.ReachParked
	default:
		return false
	}
}

// Check is one entry in the battery.
type Check struct {
	ID        string
	Category  string
	MaxPoints int
	Needs     need

	// Run evaluates the check. It is only called when the branch allows
	// the check's evidence class; it must degrade to INFO when the
	// evidence was allowed but collection failed.
	Run func(in Input) (models.CheckStatus, int, string, map[string]string)
}

// Engine runs the battery with the snapshot's enable flags and weights.
type Engine struct {
	cfg      config.ChecksConfig
	disabled map[string]bool
	logger   *slog.Logger
}

// NewEngine builds an Engine.
func NewEngine(cfg config.ChecksConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	disabled := make(map[string]bool, len(cfg.Disabled))
	for _, id := range cfg.Disabled {
		disabled[id] = true
	}
	return &Engine{cfg: cfg, disabled: disabled, logger: logger}
}

// Run executes every enabled check and aggregates per category.
//
// Category skipping: a category is skipped (contributing zero to both
// totals) if and only if every one of its checks requires evidence the
// reachability branch cannot provide. URL-structure checks therefore keep
// their categories alive on every branch, which is what gives OFFLINE
// targets a nonzero baseline battery.
func (e *Engine) Run(in Input) ([]models.CategoryResult, int, int) {
	grouped := make(map[string][]models.CheckResult)

	for _, check := range registry {
		if e.disabled[check.ID] {
			continue
		}

		var result models.CheckResult
		if !branchAllows(check.Needs, in.Reach.State) {
			result = models.CheckResult{
				ID:         check.ID,
				Category:   check.Category,
				MaxPoints:  check.MaxPoints,
				Skipped:    true,
				SkipReason: string(check.Needs) + " evidence is unobtainable for " + string(in.Reach.State) + " targets",
			}
		} else {
			status, points, desc, ev := check.Run(in)
			result = models.CheckResult{
				ID:          check.ID,
				Category:    check.Category,
				Status:      status,
				Points:      points,
				MaxPoints:   check.MaxPoints,
				Description: desc,
				Evidence:    ev,
			}
		}
		grouped[check.Category] = append(grouped[check.Category], result)
	}

	var (
		categories    []models.CategoryResult
		totalEarned   int
		totalPossible int
	)

	for _, cat := range categoryOrder {
		results, ok := grouped[cat]
		if !ok {
			continue
		}

		cr := models.CategoryResult{Category: cat, Checks: results}

		allSkipped := true
		for _, r := range results {
			if r.Skipped {
				continue
			}
			allSkipped = false
			// INFO checks ran but had nothing to inspect: they count
			// toward neither earned nor possible, so unavailable evidence
			// can never masquerade as a clean result.
			if r.Status == models.CheckInfo {
				continue
			}
			cr.Earned += r.Points
			cr.Possible += r.MaxPoints
		}

		if allSkipped {
			cr.Skipped = true
			cr.Earned, cr.Possible = 0, 0
			cr.SkipReason = "no check in this category can run for " + string(in.Reach.State) + " targets"
		} else if w, ok := e.cfg.CategoryWeights[cat]; ok && w != 1 {
			cr.Earned = int(math.Round(w * float64(cr.Earned)))
			cr.Possible = int(math.Round(w * float64(cr.Possible)))
		}

		categories = append(categories, cr)
		totalEarned += cr.Earned
		totalPossible += cr.Possible
	}

	return categories, totalEarned, totalPossible
}
