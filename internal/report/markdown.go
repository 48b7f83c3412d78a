// Package report renders scan results as markdown documents.
package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/hakim/threatscore/internal/models"
)

// Markdown renders the full scan report.
func Markdown(result *models.ScanResult) string {
	var b strings.Builder

	// Header
	b.WriteString("# URL Threat Report\n\n")
	b.WriteString(fmt.Sprintf("**URL:** %s\n", result.URL))
	b.WriteString(fmt.Sprintf("**Scan ID:** %s\n", result.ScanID))
	b.WriteString(fmt.Sprintf("**Date:** %s\n", result.StartedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("**Risk Level:** %s\n\n", result.RiskLevel))

	if result.Incomplete {
		b.WriteString(fmt.Sprintf("> **Partial result:** %s\n\n", result.IncompleteReason))
	}

	// Verdict section
	b.WriteString("## Verdict\n\n")
	if result.Policy.Overridden {
		b.WriteString(fmt.Sprintf("**Policy override:** rule `%s` forced risk level %s.\n\n", result.Policy.Rule, result.Policy.RiskLevel))
		b.WriteString(fmt.Sprintf("Reason: %s\n\n", result.Policy.Reason))
	}
	if v := result.Verdict; v != nil {
		b.WriteString(fmt.Sprintf("Calibrated probability **%.3f** (interval %.3f – %.3f, %s).\n\n", v.Probability, v.Lower, v.Upper, v.Method))
	} else if !result.Policy.Overridden {
		b.WriteString("No calibrated verdict was produced.\n\n")
	}

	// Reachability section
	b.WriteString("## Reachability\n\n")
	r := result.Reachability
	b.WriteString(fmt.Sprintf("**State:** %s\n", r.State))
	if r.ResolvedIP != "" {
		b.WriteString(fmt.Sprintf("**Resolved IP:** %s\n", r.ResolvedIP))
	}
	if r.HTTPStatus != 0 {
		b.WriteString(fmt.Sprintf("**HTTP status:** %d\n", r.HTTPStatus))
	}
	if r.Signal != "" {
		b.WriteString(fmt.Sprintf("**Signal:** %s\n", r.Signal))
	}
	if r.FailedStage != "" {
		b.WriteString(fmt.Sprintf("**Failed stage:** %s\n", r.FailedStage))
	}
	if len(r.RedirectChain) > 0 {
		b.WriteString(fmt.Sprintf("**Redirects:** %s\n", strings.Join(r.RedirectChain, " -> ")))
	}
	b.WriteString("\n")

	// Threat intel section
	b.WriteString("## Threat Intelligence\n\n")
	if result.Intel.Total > 0 {
		b.WriteString(fmt.Sprintf("%d finding(s): %d tier-1, %d tier-2.\n\n", result.Intel.Total, result.Intel.Tier1Hits, result.Intel.Tier2Hits))
		b.WriteString("| Source | Tier | Severity | Last Seen |\n")
		b.WriteString("|--------|------|----------|----------|\n")
		for _, f := range result.Intel.Findings {
			b.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n", f.Source, f.Tier, f.Severity, f.LastSeen.Format("2006-01-02")))
		}
	} else {
		b.WriteString("No reputation findings.\n")
	}
	b.WriteString("\n")

	// Model stages
	b.WriteString("## Model Stages\n\n")
	writeStage(&b, result.Stage1)
	writeStage(&b, result.Stage2)
	if result.Stage1 == nil && result.Stage2 == nil {
		b.WriteString("No model stage ran.\n\n")
	}

	// Category checks
	b.WriteString("## Category Checks\n\n")
	if len(result.Categories) > 0 {
		b.WriteString(fmt.Sprintf("**Total:** %d / %d points\n\n", result.CategoryEarned, result.CategoryPossible))
		b.WriteString("| Category | Earned | Possible | Notes |\n")
		b.WriteString("|----------|--------|----------|-------|\n")
		for _, cat := range result.Categories {
			note := "-"
			if cat.Skipped {
				note = "skipped: " + cat.SkipReason
			}
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n", cat.Category, cat.Earned, cat.Possible, note))
		}
		b.WriteString("\n")
		writeFindings(&b, result.Categories)
	} else {
		b.WriteString("No checks ran.\n\n")
	}

	// Evidence gaps
	if len(result.EvidenceMissing) > 0 {
		b.WriteString("## Evidence Gaps\n\n")
		b.WriteString("The following evidence could not be collected: ")
		b.WriteString(strings.Join(result.EvidenceMissing, ", "))
		b.WriteString(".\n\n")
	}

	// Timings
	if len(result.StageLatencies) > 0 {
		b.WriteString("## Timings\n\n")
		b.WriteString("| Stage | Duration (ms) |\n")
		b.WriteString("|-------|---------------|\n")
		for _, stage := range []string{"intel", "probe", "evidence", "stage1", "stage2", "checks"} {
			if ms, ok := result.StageLatencies[stage]; ok {
				b.WriteString(fmt.Sprintf("| %s | %d |\n", stage, ms))
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// WriteReport renders the result and writes it to outputPath.
func WriteReport(result *models.ScanResult, outputPath string) error {
	if err := os.WriteFile(outputPath, []byte(Markdown(result)), 0644); err != nil {
		return fmt.Errorf("report: writing %s: %w", outputPath, err)
	}
	return nil
}

// writeStage renders one ensemble stage's table, if the stage ran.
func writeStage(b *strings.Builder, stage *models.StageResult) {
	if stage == nil {
		return
	}
	b.WriteString(fmt.Sprintf("### Stage %d\n\n", stage.Stage))
	b.WriteString(fmt.Sprintf("Combined probability %.3f, confidence %.3f", stage.Probability, stage.Confidence))
	if stage.ShouldExit {
		b.WriteString(" (early exit)")
	}
	b.WriteString(".\n\n")

	if len(stage.Predictions) > 0 {
		b.WriteString("| Model | Kind | Probability | Confidence |\n")
		b.WriteString("|-------|------|-------------|------------|\n")
		for _, p := range stage.Predictions {
			b.WriteString(fmt.Sprintf("| %s | %s | %.3f | %.3f |\n", p.ModelID, p.Kind, p.Probability, p.Confidence))
		}
		b.WriteString("\n")
	}
}

// writeFindings lists every non-PASS check so the report surfaces what
// actually earned points or could not be inspected.
func writeFindings(b *strings.Builder, categories []models.CategoryResult) {
	b.WriteString("### Findings\n\n")
	any := false
	for _, cat := range categories {
		for _, c := range cat.Checks {
			if c.Skipped || c.Status == models.CheckPass {
				continue
			}
			any = true
			b.WriteString(fmt.Sprintf("- **%s** [%s, %s]: %s (%d/%d points)\n",
				c.ID, cat.Category, c.Status, c.Description, c.Points, c.MaxPoints))
		}
	}
	if !any {
		b.WriteString("No findings.\n")
	}
	b.WriteString("\n")
}
