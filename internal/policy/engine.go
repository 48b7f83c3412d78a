// Package policy applies the ordered hard-override rules that can
// supersede the calibrated ML verdict. Rule order is part of the
// contract: evaluation is first-match-wins, and reordering the table
// changes outcomes.
package policy

import (
	"fmt"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

// Rule is one hard-override rule. Match returns a human-readable reason
// when the rule fires.
type Rule struct {
	// ID is the stable rule identifier recorded in PolicyDecision.
	ID string

	// Band is the risk level the rule overrides to.
	Band models.RiskBand

	// Match evaluates the rule against the scan's immutable inputs.
	Match func(fv models.FeatureVector, intel models.TISummary, reach models.Reachability, cfg config.PolicyConfig) (string, bool)
}

// rules is the canonical ordered table, highest priority first.
var rules = []Rule{
	{
		ID:   "TOMBSTONE",
		Band: models.BandF,
		Match: func(fv models.FeatureVector, _ models.TISummary, _ models.Reachability, _ config.PolicyConfig) (string, bool) {
			if fv.Causal.Tombstone {
				return "target was previously confirmed malicious and taken down", true
			}
			return "", false
		},
	},
	{
		ID:   "DUAL_TIER1_HITS",
		Band: models.BandF,
		Match: func(fv models.FeatureVector, intel models.TISummary, _ models.Reachability, _ config.PolicyConfig) (string, bool) {
			if fv.Causal.DualTier1 || intel.Tier1Hits >= 2 {
				return fmt.Sprintf("%d tier-1 threat-intel sources report this target", intel.Tier1Hits), true
			}
			return "", false
		},
	},
	{
		ID:   "CRITICAL_TIER1_HIT",
		Band: models.BandF,
		Match: func(_ models.FeatureVector, intel models.TISummary, _ models.Reachability, _ config.PolicyConfig) (string, bool) {
			if intel.CriticalTier1 {
				return "a tier-1 source reports this target with critical severity", true
			}
			return "", false
		},
	},
	{
		ID:   "FORM_MISMATCH_YOUNG_DOMAIN",
		Band: models.BandE,
		Match: func(fv models.FeatureVector, _ models.TISummary, _ models.Reachability, cfg config.PolicyConfig) (string, bool) {
			if fv.Causal.FormOriginMismatch && youngDomain(fv, cfg) {
				return fmt.Sprintf("credential form posts off-domain and the domain is %d days old", fv.Tabular.DomainAgeDays), true
			}
			return "", false
		},
	},
	{
		ID:   "BRAND_DIVERGENCE_YOUNG_RISKY_TLD",
		Band: models.BandD,
		Match: func(fv models.FeatureVector, _ models.TISummary, _ models.Reachability, cfg config.PolicyConfig) (string, bool) {
			if fv.Causal.BrandInfraDivergence && youngDomain(fv, cfg) && fv.Tabular.TLDRisk >= cfg.HighRiskTLDMin {
				return "brand identity on young infrastructure under a high-risk TLD", true
			}
			return "", false
		},
	},
	{
		ID:   "RECENT_TI_HISTORY",
		Band: models.BandD,
		Match: func(_ models.FeatureVector, intel models.TISummary, _ models.Reachability, cfg config.PolicyConfig) (string, bool) {
			if intel.RecentHit {
				return fmt.Sprintf("threat-intel hit within the last %d days", cfg.TIRecencyDays), true
			}
			return "", false
		},
	},
}

// youngDomain reports whether the domain's age is known and below the
// configured young-domain threshold. Unknown age (-1) never counts as
// young; a missing WHOIS record must not trigger overrides.
func youngDomain(fv models.FeatureVector, cfg config.PolicyConfig) bool {
	age := fv.Tabular.DomainAgeDays
	return age >= 0 && age < cfg.YoungDomainMaxAgeDays
}

// Engine evaluates the rule table.
type Engine struct {
	cfg      config.PolicyConfig
	disabled map[string]bool
}

// NewEngine builds an Engine. Disabled rule IDs come pre-validated from
// the config snapshot (the terminal rules cannot be disabled).
func NewEngine(cfg config.PolicyConfig) *Engine {
	disabled := make(map[string]bool, len(cfg.Disabled))
	for _, id := range cfg.Disabled {
		disabled[id] = true
	}
	return &Engine{cfg: cfg, disabled: disabled}
}

// Evaluate runs the ordered table, first match wins. Given identical
// inputs it always produces the identical decision. When no rule matches,
// the calibrated probability stands unmodified.
func (e *Engine) Evaluate(fv models.FeatureVector, intel models.TISummary, reach models.Reachability) models.PolicyDecision {
	for _, rule := range rules {
		if e.disabled[rule.ID] {
			continue
		}
		if reason, ok := rule.Match(fv, intel, reach, e.cfg); ok {
			return models.PolicyDecision{
				Overridden: true,
				Rule:       rule.ID,
				RiskLevel:  rule.Band,
				Reason:     reason,
			}
		}
	}
	return models.PolicyDecision{}
}

// RuleIDs returns the rule identifiers in evaluation order; calibration
// tooling uses it to enumerate the contract.
func RuleIDs() []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}
