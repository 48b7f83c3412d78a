package riskband

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

func testBands() config.BandsConfig {
	return config.BandsConfig{
		Thresholds: map[string][]float64{
			"ONLINE":   {0.10, 0.25, 0.45, 0.65, 0.85},
			"OFFLINE":  {0.20, 0.40, 0.60, 0.80, 0.92},
			"PARKED":   {0.20, 0.40, 0.60, 0.80, 0.92},
			"WAF":      {0.15, 0.30, 0.50, 0.70, 0.88},
			"SINKHOLE": {0.10, 0.20, 0.35, 0.55, 0.75},
		},
	}
}

func TestMap_BranchTables(t *testing.T) {
	cfg := testBands()

	tests := []struct {
		name   string
		p      float64
		branch models.Reachability
		want   models.RiskBand
	}{
		{"online low", 0.05, models.ReachOnline, models.BandA},
		{"online B boundary", 0.10, models.ReachOnline, models.BandB},
		{"online mid", 0.50, models.ReachOnline, models.BandD},
		{"online high", 0.90, models.ReachOnline, models.BandF},
		{"offline same p is safer", 0.30, models.ReachOffline, models.BandB},
		{"online 0.30 is C", 0.30, models.ReachOnline, models.BandC},
		{"sinkhole escalates faster", 0.80, models.ReachSinkhole, models.BandF},
		{"online 0.80 is E", 0.80, models.ReachOnline, models.BandE},
		{"parked mid", 0.45, models.ReachParked, models.BandC},
		{"waf", 0.95, models.ReachWAF, models.BandF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Map(tt.p, tt.branch, cfg))
		})
	}
}

func TestMap_MissingBranchFallsBackToOnline(t *testing.T) {
	cfg := testBands()
	delete(cfg.Thresholds, "WAF")

	assert.Equal(t, Map(0.3, models.ReachOnline, cfg), Map(0.3, models.ReachWAF, cfg))
}

func TestFinal_OverrideVerbatim(t *testing.T) {
	cfg := testBands()

	decision := models.PolicyDecision{Overridden: true, Rule: "TOMBSTONE", RiskLevel: models.BandF}
	verdict := &models.CalibratedVerdict{Probability: 0.01}

	// The override wins even when the calibrated probability maps to A.
	assert.Equal(t, models.BandF, Final(decision, verdict, models.ReachOnline, cfg))
}

func TestFinal_VerdictWhenNoOverride(t *testing.T) {
	cfg := testBands()

	verdict := &models.CalibratedVerdict{Probability: 0.95}
	assert.Equal(t, models.BandF, Final(models.PolicyDecision{}, verdict, models.ReachOnline, cfg))
}

func TestFinal_NilVerdictUsesNeutralPrior(t *testing.T) {
	cfg := testBands()

	// 0.5 on the ONLINE table is band D.
	assert.Equal(t, models.BandD, Final(models.PolicyDecision{}, nil, models.ReachOnline, cfg))
}
