package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/threatscore/internal/models"
)

func sampleResult() *models.ScanResult {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.ScanResult{
		ScanID:    "scan-42",
		URL:       "https://paypal-com.vercel.app/login",
		Hostname:  "paypal-com.vercel.app",
		StartedAt: now,
		Reachability: models.ReachabilityResult{
			State:      models.ReachOnline,
			ResolvedIP: "203.0.113.9",
			HTTPStatus: 200,
		},
		Intel: models.TISummary{
			Total:     1,
			Tier2Hits: 1,
			Findings: []models.TIFinding{
				{Source: "community", Tier: 2, Severity: models.SeverityMedium, LastSeen: now},
			},
		},
		Stage1: &models.StageResult{
			Stage:       1,
			Probability: 0.91,
			Confidence:  0.88,
			ShouldExit:  true,
			Predictions: []models.ModelPrediction{
				{ModelID: "lexical-ngram", Kind: models.PredictorHeuristic, Probability: 0.9, Confidence: 0.9},
			},
		},
		Verdict: &models.CalibratedVerdict{
			Probability: 0.87,
			Lower:       0.75,
			Upper:       0.99,
			Method:      "split-conformal",
		},
		RiskLevel: models.BandE,
		Categories: []models.CategoryResult{
			{
				Category: "brand",
				Earned:   25,
				Possible: 25,
				Checks: []models.CheckResult{
					{
						ID:          "BRAND_FREE_HOSTING_IMPERSONATION",
						Category:    "brand",
						Status:      models.CheckFail,
						Points:      25,
						MaxPoints:   25,
						Description: "brand \"paypal\" claimed on free-hosting infrastructure",
					},
				},
			},
			{Category: "tls", Skipped: true, SkipReason: "unreachable"},
		},
		CategoryEarned:   25,
		CategoryPossible: 25,
		EvidenceMissing:  []string{"screenshot"},
		StageLatencies:   map[string]int64{"intel": 12, "probe": 230, "stage1": 45},
	}
}

func TestMarkdown(t *testing.T) {
	out := Markdown(sampleResult())

	assert.Contains(t, out, "# URL Threat Report")
	assert.Contains(t, out, "**Risk Level:** E")
	assert.Contains(t, out, "Calibrated probability **0.870** (interval 0.750 – 0.990, split-conformal)")
	assert.Contains(t, out, "**State:** ONLINE")
	assert.Contains(t, out, "| community | 2 | medium |")
	assert.Contains(t, out, "(early exit)")
	assert.Contains(t, out, "| lexical-ngram |")
	assert.Contains(t, out, "**Total:** 25 / 25 points")
	assert.Contains(t, out, "skipped: unreachable")
	assert.Contains(t, out, "BRAND_FREE_HOSTING_IMPERSONATION")
	assert.Contains(t, out, "## Evidence Gaps")
	assert.Contains(t, out, "screenshot")
	assert.Contains(t, out, "| probe | 230 |")
}

func TestMarkdown_PolicyOverride(t *testing.T) {
	r := sampleResult()
	r.Policy = models.PolicyDecision{
		Overridden: true,
		Rule:       "TOMBSTONE",
		RiskLevel:  models.BandF,
		Reason:     "sinkholed domain with confirmed-malicious history",
	}
	r.Verdict = nil

	out := Markdown(r)
	assert.Contains(t, out, "rule `TOMBSTONE` forced risk level F")
	assert.Contains(t, out, "sinkholed domain with confirmed-malicious history")
	assert.NotContains(t, out, "No calibrated verdict")
}

func TestMarkdown_PartialResult(t *testing.T) {
	r := sampleResult()
	r.Incomplete = true
	r.IncompleteReason = "deadline reached during evidence collection"

	out := Markdown(r)
	assert.Contains(t, out, "> **Partial result:** deadline reached during evidence collection")
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, WriteReport(sampleResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# URL Threat Report")
}
