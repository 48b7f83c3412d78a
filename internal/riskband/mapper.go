// Package riskband maps calibrated probabilities onto the categorical
// A..F verdict using branch-specific threshold tables.
package riskband

import (
	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

var bands = []models.RiskBand{
	models.BandA, models.BandB, models.BandC,
	models.BandD, models.BandE, models.BandF,
}

// Map translates a probability into a band using the branch's cutoff
// table. The same probability maps to safer bands on unreachable branches:
// an OFFLINE site scored 0.3 carries less meaning than an ONLINE one.
func Map(p float64, branch models.Reachability, cfg config.BandsConfig) models.RiskBand {
	cuts, ok := cfg.Thresholds[string(branch)]
	if !ok || len(cuts) != 5 {
		// Validation guarantees the table; if a caller bypassed it, the
		// strictest (ONLINE) table is the safe reading.
		cuts = cfg.Thresholds[string(models.ReachOnline)]
		if len(cuts) != 5 {
			return models.BandF
		}
	}

	for i, cut := range cuts {
		if p < cut {
			return bands[i]
		}
	}
	return models.BandF
}

// Final resolves the scan's risk level: a policy override is used
// verbatim; otherwise the calibrated probability is mapped through the
// branch table. Exactly one of the two ever determines the band.
func Final(policy models.PolicyDecision, verdict *models.CalibratedVerdict, branch models.Reachability, cfg config.BandsConfig) models.RiskBand {
	if policy.Overridden {
		return policy.RiskLevel
	}
	p := 0.5 // neutral prior for a scan that never produced a verdict
	if verdict != nil {
		p = verdict.Probability
	}
	return Map(p, branch, cfg)
}
