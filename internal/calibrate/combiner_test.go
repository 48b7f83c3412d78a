package calibrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

func testCalibrationConfig() config.CalibrationConfig {
	return config.CalibrationConfig{
		Alpha:         0.1,
		FallbackWidth: 0.25,
		WithStage2:    config.CombineWeights{Stage1: 0.35, Stage2: 0.45, Causal: 0.20},
		WithoutStage2: config.CombineWeights{Stage1: 0.75, Causal: 0.25},
	}
}

func sampleSet(n int, residual float64) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{Predicted: 0.5, Label: 0.5 + residual}
	}
	return samples
}

type failingStore struct{}

func (failingStore) Samples(context.Context, models.Reachability) ([]Sample, error) {
	return nil, errors.New("boom")
}

func TestConformalWidth(t *testing.T) {
	tests := []struct {
		name      string
		samples   []Sample
		alpha     float64
		wantWidth float64
		wantOK    bool
	}{
		{"empty set", nil, 0.1, 0, false},
		{"uniform residuals", sampleSet(20, 0.1), 0.1, 0.1, true},
		{"single sample", sampleSet(1, 0.3), 0.1, 0.3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			width, ok := conformalWidth(tt.samples, tt.alpha)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.wantWidth, width, 1e-9)
		})
	}
}

func TestConformalWidth_QuantileRank(t *testing.T) {
	// Residuals 0.01..0.10; at alpha=0.1 with n=10 the rank is
	// ceil(11*0.9)=10, so the width is the largest residual.
	samples := make([]Sample, 10)
	for i := range samples {
		samples[i] = Sample{Predicted: 0, Label: float64(i+1) / 100}
	}
	width, ok := conformalWidth(samples, 0.1)
	require.True(t, ok)
	assert.InDelta(t, 0.10, width, 1e-9)

	// At alpha=0.5 the rank is ceil(11*0.5)=6.
	width, ok = conformalWidth(samples, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 0.06, width, 1e-9)
}

func TestCombine_IntervalContainsPoint(t *testing.T) {
	store := &StaticStore{ByBranch: map[models.Reachability][]Sample{
		models.ReachOnline: sampleSet(50, 0.08),
	}}
	combiner := NewCombiner(store, testCalibrationConfig(), nil)

	stage1 := &models.StageResult{Stage: 1, Probability: 0.7, Confidence: 0.9}
	stage2 := &models.StageResult{Stage: 2, Probability: 0.8, Confidence: 0.8}

	verdict := combiner.Combine(context.Background(), stage1, stage2, models.FeatureVector{}, models.ReachOnline)

	assert.Equal(t, "split-conformal", verdict.Method)
	assert.LessOrEqual(t, verdict.Lower, verdict.Probability)
	assert.GreaterOrEqual(t, verdict.Upper, verdict.Probability)
	assert.GreaterOrEqual(t, verdict.Lower, 0.0)
	assert.LessOrEqual(t, verdict.Upper, 1.0)
}

func TestCombine_WeightedFusion(t *testing.T) {
	store := &StaticStore{}
	combiner := NewCombiner(store, testCalibrationConfig(), nil)

	stage1 := &models.StageResult{Probability: 0.6}
	stage2 := &models.StageResult{Probability: 0.9}

	// No causal signals: causal contribution is 0.05.
	verdict := combiner.Combine(context.Background(), stage1, stage2, models.FeatureVector{}, models.ReachOnline)
	want := 0.35*0.6 + 0.45*0.9 + 0.20*0.05
	assert.InDelta(t, want, verdict.Probability, 1e-9)

	// Without Stage-2 the two-weight formula applies.
	verdict = combiner.Combine(context.Background(), stage1, nil, models.FeatureVector{}, models.ReachOnline)
	want = 0.75*0.6 + 0.25*0.05
	assert.InDelta(t, want, verdict.Probability, 1e-9)
}

func TestCombine_FallbackWhenNoSamples(t *testing.T) {
	combiner := NewCombiner(&StaticStore{}, testCalibrationConfig(), nil)

	verdict := combiner.Combine(context.Background(), &models.StageResult{Probability: 0.5}, nil, models.FeatureVector{}, models.ReachOffline)
	assert.Equal(t, "fallback-width", verdict.Method)
	assert.InDelta(t, 0.25, verdict.Probability-verdict.Lower, 1e-9)
}

func TestCombine_StoreFailureDegradesToFallback(t *testing.T) {
	combiner := NewCombiner(failingStore{}, testCalibrationConfig(), nil)

	verdict := combiner.Combine(context.Background(), &models.StageResult{Probability: 0.5}, nil, models.FeatureVector{}, models.ReachOnline)
	assert.Equal(t, "fallback-width", verdict.Method)
}

func TestCombine_MissingEvidenceWidensInterval(t *testing.T) {
	store := &StaticStore{ByBranch: map[models.Reachability][]Sample{
		models.ReachOnline: sampleSet(50, 0.05),
	}}
	combiner := NewCombiner(store, testCalibrationConfig(), nil)
	stage1 := &models.StageResult{Probability: 0.5}

	full := combiner.Combine(context.Background(), stage1, nil, models.FeatureVector{}, models.ReachOnline)
	degraded := combiner.Combine(context.Background(), stage1, nil, models.FeatureVector{
		MissingInputs: []string{"whois", "tls", "html"},
	}, models.ReachOnline)

	assert.Greater(t, degraded.Upper-degraded.Lower, full.Upper-full.Lower)
}

func TestCombine_CausalScoreSteps(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{0, 0.05}, {1, 0.5}, {2, 0.8}, {3, 0.95}, {5, 0.95},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, causalScore(tt.count), 1e-9, "count %d", tt.count)
	}
}

func TestCombine_NilStage1UsesNeutralPrior(t *testing.T) {
	combiner := NewCombiner(&StaticStore{}, testCalibrationConfig(), nil)

	verdict := combiner.Combine(context.Background(), nil, nil, models.FeatureVector{}, models.ReachOnline)
	want := 0.75*0.5 + 0.25*0.05
	assert.InDelta(t, want, verdict.Probability, 1e-9)
}

func TestCombine_GraphOrder(t *testing.T) {
	combiner := NewCombiner(&StaticStore{}, testCalibrationConfig(), nil)

	verdict := combiner.Combine(context.Background(),
		&models.StageResult{Probability: 0.6},
		&models.StageResult{Probability: 0.7},
		models.FeatureVector{}, models.ReachOnline)

	require.Len(t, verdict.Graph, 4)
	assert.Equal(t, "stage1", verdict.Graph[0].Component)
	assert.Equal(t, "stage2", verdict.Graph[1].Component)
	assert.Equal(t, "causal", verdict.Graph[2].Component)
	assert.Equal(t, "calibration:fallback-width", verdict.Graph[3].Component)
}
