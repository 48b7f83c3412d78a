package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSnapshotValidates(t *testing.T) {
	require.NoError(t, DefaultSnapshot().Validate())
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Snapshot)
		wantErr string
	}{
		{
			"zero deadline",
			func(s *Snapshot) { s.Scan.Deadline = 0 },
			"scan.deadline",
		},
		{
			"feed without path",
			func(s *Snapshot) { s.Intel.Feeds = []FeedRef{{Name: "x", Tier: 1}} },
			"intel.feeds[0]",
		},
		{
			"feed tier out of range",
			func(s *Snapshot) { s.Intel.Feeds = []FeedRef{{Name: "x", Path: "/f", Tier: 4}} },
			"tier must be 1, 2 or 3",
		},
		{
			"early exit threshold above one",
			func(s *Snapshot) { s.Models.EarlyExitThreshold = 1.5 },
			"early_exit_threshold",
		},
		{
			"empty stage1",
			func(s *Snapshot) { s.Models.Stage1 = nil },
			"stage1 must define at least one model",
		},
		{
			"alpha at boundary",
			func(s *Snapshot) { s.Calibration.Alpha = 1 },
			"calibration.alpha",
		},
		{
			"terminal policy rule disabled",
			func(s *Snapshot) { s.Policy.Disabled = []string{"TOMBSTONE"} },
			"cannot be disabled",
		},
		{
			"wrong cutoff count",
			func(s *Snapshot) { s.Bands.Thresholds["ONLINE"] = []float64{0.2, 0.4} },
			"exactly 5 cutoffs",
		},
		{
			"descending cutoffs",
			func(s *Snapshot) { s.Bands.Thresholds["ONLINE"] = []float64{0.5, 0.4, 0.6, 0.8, 0.9} },
			"out of order",
		},
		{
			"missing branch table",
			func(s *Snapshot) { delete(s.Bands.Thresholds, "SINKHOLE") },
			"missing branch SINKHOLE",
		},
		{
			"tld risk above one",
			func(s *Snapshot) { s.Lists.TLDRisk = map[string]float64{"tk": 1.2} },
			"tld_risk.tk",
		},
		{
			"negative category weight",
			func(s *Snapshot) { s.Checks.CategoryWeights = map[string]float64{"tls": -1} },
			"category_weights.tls",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := DefaultSnapshot()
			tt.mutate(snap)
			err := snap.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ModelRefs(t *testing.T) {
	snap := DefaultSnapshot()
	snap.Models.Stage1 = []ModelRef{{ID: "m", Kind: "quantum", Weight: 1}}
	err := snap.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind must be trained or heuristic-fallback")
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threatscore.yaml")
	require.NoError(t, WriteDefault(path))

	snap, err := Load(path)
	require.NoError(t, err)

	want := DefaultSnapshot()
	assert.Equal(t, want.Scan.Deadline, snap.Scan.Deadline)
	assert.Equal(t, want.Models.EarlyExitThreshold, snap.Models.EarlyExitThreshold)
	assert.Equal(t, want.Calibration.Alpha, snap.Calibration.Alpha)
	assert.Equal(t, want.Bands.Thresholds["ONLINE"], snap.Bands.Thresholds["ONLINE"])
	assert.Len(t, snap.Models.Stage1, len(want.Models.Stage1))
	require.NoError(t, snap.Validate())
}

func TestTLDRiskFor(t *testing.T) {
	snap := DefaultSnapshot()
	snap.Lists.TLDRisk = map[string]float64{"tk": 0.85}

	assert.InDelta(t, 0.85, snap.TLDRiskFor("tk"), 1e-9)
	assert.InDelta(t, 0.1, snap.TLDRiskFor("org"), 1e-9)
}
