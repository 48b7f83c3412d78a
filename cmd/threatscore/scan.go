package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hakim/threatscore/internal/calibrate"
	"github.com/hakim/threatscore/internal/checks"
	"github.com/hakim/threatscore/internal/evidence"
	"github.com/hakim/threatscore/internal/intel"
	"github.com/hakim/threatscore/internal/metrics"
	"github.com/hakim/threatscore/internal/ml"
	"github.com/hakim/threatscore/internal/models"
	"github.com/hakim/threatscore/internal/policy"
	"github.com/hakim/threatscore/internal/probe"
	"github.com/hakim/threatscore/internal/report"
	"github.com/hakim/threatscore/internal/scan"
	"github.com/hakim/threatscore/internal/storage"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Score a single URL",
	Long: `Run the full scoring pipeline for one URL.

The pipeline queries the configured threat-intel feeds, probes
reachability (ONLINE, OFFLINE, PARKED, WAF, SINKHOLE), collects the
evidence the branch permits, runs the classifier ensemble with conformal
calibration, applies the hard policy rules, and runs the category check
battery. The scan is bounded by a deadline; a scan that runs out of time
still reports everything produced so far.

Results are persisted to the configured database so 'threatscore history'
works across runs.

Examples:
  threatscore scan -u https://example.com
  threatscore scan -u paypal-com.vercel.app --report out.md
  threatscore scan -u https://example.com --skip-stage2 --timeout 5s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// ── 1. Read all flags ──────────────────────────────────────────────
		rawURL, _ := cmd.Flags().GetString("url")
		skipScreenshot, _ := cmd.Flags().GetBool("skip-screenshot")
		skipStage2, _ := cmd.Flags().GetBool("skip-stage2")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		reportPath, _ := cmd.Flags().GetString("report")
		noSave, _ := cmd.Flags().GetBool("no-save")

		// ── 2. Build the request ───────────────────────────────────────────
		req, err := models.NewScanRequest(rawURL, models.ScanOptions{
			SkipScreenshot: skipScreenshot,
			SkipStage2:     skipStage2,
			Deadline:       timeout,
		})
		if err != nil {
			return err
		}

		// ── 3. Open the store ──────────────────────────────────────────────
		store, err := storage.NewStore(snap.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		calStore, err := calibrate.NewBoltStore(store.DB())
		if err != nil {
			return fmt.Errorf("opening calibration store: %w", err)
		}

		// ── 4. Assemble the pipeline ───────────────────────────────────────
		orch, err := buildOrchestrator(store, calStore, noSave)
		if err != nil {
			return err
		}

		// ── 5. Run the scan ────────────────────────────────────────────────
		fmt.Printf("[*] Scanning %s\n", req.URL)

		result, err := orch.Scan(context.Background(), req)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		// ── 6. Print summary ───────────────────────────────────────────────
		printScanSummary(result)

		// ── 7. Optional markdown report ────────────────────────────────────
		if reportPath != "" {
			dest, err := storage.ResolveReportPath(reportPath, result.Hostname, result.StartedAt)
			if err != nil {
				return err
			}
			if err := report.WriteReport(result, dest); err != nil {
				return err
			}
			fmt.Printf("[+] Report written to %s\n", dest)
		}

		return nil
	},
}

// buildOrchestrator wires the default collaborators from the loaded
// snapshot: file-backed intel feeds, the stdlib-based evidence collectors,
// and heuristic predictors (plus the HTTP predictor when any model is
// configured as trained).
func buildOrchestrator(store *storage.Store, calStore calibrate.Store, noSave bool) (*scan.Orchestrator, error) {
	logger := slog.Default()

	sources := make([]intel.Source, 0, len(snap.Intel.Feeds))
	for _, feed := range snap.Intel.Feeds {
		sources = append(sources, intel.NewFileSource(feed))
	}
	aggregator, err := intel.New(sources, snap.Intel, logger)
	if err != nil {
		return nil, fmt.Errorf("building intel aggregator: %w", err)
	}

	collector := evidence.New(evidence.Deps{
		Registry: evidence.NewWHOISClient(),
		Resolver: evidence.NewNetResolver(),
		TLS:      evidence.NewCertInspector(),
		Renderer: evidence.NewHTTPRenderer(nil, snap.Probe.MaxBodyBytes),
	}, snap.Evidence, logger)

	var trained ml.Predictor
	if hasTrainedModels() {
		trained = ml.NewHTTPPredictor(nil, snap.Models)
	}
	selector := ml.NewSelector(ml.NewHeuristicPredictor(), trained)

	deps := scan.Deps{
		Intel:    aggregator,
		Prober:   probe.New(snap.Probe, logger),
		Evidence: collector,
		Runner:   ml.NewRunner(selector, snap.Models, logger),
		Combiner: calibrate.NewCombiner(calStore, snap.Calibration, logger),
		Policy:   policy.NewEngine(snap.Policy),
		Checks:   checks.NewEngine(snap.Checks, logger),
		Metrics:  metrics.New(nil),
	}
	if !noSave {
		deps.Store = store
	}

	return scan.New(deps, snap, logger), nil
}

func hasTrainedModels() bool {
	for _, ref := range append(snap.Models.Stage1, snap.Models.Stage2...) {
		if ref.Kind == "trained" {
			return true
		}
	}
	return false
}

// printScanSummary renders the compact terminal summary.
func printScanSummary(result *models.ScanResult) {
	fmt.Println()
	fmt.Printf("[+] Scan complete!\n")
	fmt.Printf("    URL:          %s\n", result.URL)
	fmt.Printf("    Scan ID:      %s\n", result.ScanID)
	fmt.Printf("    Reachability: %s\n", result.Reachability.State)
	fmt.Printf("    Risk level:   %s\n", result.RiskLevel)

	if v := result.Verdict; v != nil {
		fmt.Printf("    Probability:  %.3f  [%.3f, %.3f] (%s)\n", v.Probability, v.Lower, v.Upper, v.Method)
	}
	if result.Policy.Overridden {
		fmt.Printf("    Override:     %s (%s)\n", result.Policy.Rule, result.Policy.Reason)
	}
	fmt.Printf("    Checks:       %d/%d points\n", result.CategoryEarned, result.CategoryPossible)
	fmt.Printf("    Elapsed:      %s\n", result.CompletedAt.Sub(result.StartedAt).Round(time.Millisecond))

	if result.Incomplete {
		fmt.Printf("[!] Partial result: %s\n", result.IncompleteReason)
	}
	if len(result.EvidenceMissing) > 0 {
		fmt.Printf("[!] Evidence not collected: %v\n", result.EvidenceMissing)
	}
}

func init() {
	scanCmd.Flags().StringP("url", "u", "", "URL to score (required)")
	scanCmd.Flags().Bool("skip-screenshot", false, "Skip screenshot capture")
	scanCmd.Flags().Bool("skip-stage2", false, "Skip the deep model stage regardless of confidence")
	scanCmd.Flags().Duration("timeout", 0, "Per-scan deadline (never extends the configured one)")
	scanCmd.Flags().String("report", "", "Write a markdown report to this path (a directory gets a generated filename)")
	scanCmd.Flags().Bool("no-save", false, "Do not persist the result to the database")

	scanCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(scanCmd)
}
