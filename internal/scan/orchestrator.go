// Package scan orchestrates the full scoring pipeline for one URL: intel
// gate, reachability probe, evidence collection, feature extraction, the
// ensemble stages, calibration, policy and the category check battery.
package scan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/hakim/threatscore/internal/calibrate"
	"github.com/hakim/threatscore/internal/checks"
	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/evidence"
	"github.com/hakim/threatscore/internal/features"
	"github.com/hakim/threatscore/internal/intel"
	"github.com/hakim/threatscore/internal/metrics"
	"github.com/hakim/threatscore/internal/ml"
	"github.com/hakim/threatscore/internal/models"
	"github.com/hakim/threatscore/internal/policy"
	"github.com/hakim/threatscore/internal/probe"
	"github.com/hakim/threatscore/internal/riskband"
)

// ResultStore is the minimal persistence contract the orchestrator needs.
// Using an interface keeps the package testable without a real database.
type ResultStore interface {
	SaveResult(result *models.ScanResult) error
}

// Deps are the pipeline collaborators. Store and Metrics are optional;
// everything else is required.
type Deps struct {
	Intel    *intel.Aggregator
	Prober   *probe.Prober
	Evidence *evidence.Collector
	Runner   *ml.Runner
	Combiner *calibrate.Combiner
	Policy   *policy.Engine
	Checks   *checks.Engine
	Store    ResultStore
	Metrics  *metrics.Metrics
}

// Orchestrator runs scans against one immutable config snapshot.
type Orchestrator struct {
	deps   Deps
	snap   *config.Snapshot
	logger *slog.Logger
	now    func() time.Time

	// stageMu guards StageLatencies writes; the model and check sides of
	// the pipeline record their latencies concurrently.
	stageMu sync.Mutex
}

// New builds an Orchestrator.
func New(deps Deps, snap *config.Snapshot, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{deps: deps, snap: snap, logger: logger, now: time.Now}
}

// Scan runs the full pipeline for one request.
//
// Deadline semantics: the scan runs under the configured deadline (the
// per-request option may shorten it, never extend it). A scan that runs
// out of time returns everything produced so far with Incomplete set; it
// never returns an error for a timeout. The returned result is complete
// in structure even when incomplete in content.
func (o *Orchestrator) Scan(ctx context.Context, req models.ScanRequest) (*models.ScanResult, error) {
	deadline := o.snap.Scan.Deadline
	if req.Options.Deadline > 0 && req.Options.Deadline < deadline {
		deadline = req.Options.Deadline
	}
	scanCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	result := &models.ScanResult{
		ScanID:         req.ID,
		RawURL:         req.RawURL,
		URL:            req.URL,
		Hostname:       req.Hostname,
		StartedAt:      o.now().UTC(),
		StageLatencies: make(map[string]int64),
	}

	// ── 1. Threat-intel gate ─────────────────────────────────────────────
	intelStart := o.now()
	summary := o.deps.Intel.Lookup(scanCtx, req)
	o.recordStage(result, "intel", o.now().Sub(intelStart))
	result.Intel = summary

	if rule, band, terminal := intel.Gate(summary); terminal {
		o.logger.Info("intel gate short-circuited scan",
			"scan_id", req.ID, "hostname", req.Hostname, "rule", rule)
		if o.deps.Metrics != nil {
			o.deps.Metrics.GateShortCircuit.Inc()
		}
		return o.finishGated(req, result, rule, band)
	}

	if expired(scanCtx) {
		return o.finishPartial(result, "deadline reached during intel lookup")
	}

	// ── 2. Reachability probe ────────────────────────────────────────────
	probeStart := o.now()
	reach := o.deps.Prober.Probe(scanCtx, req)
	o.recordStage(result, "probe", o.now().Sub(probeStart))
	result.Reachability = reach

	if expired(scanCtx) {
		return o.finishPartial(result, "deadline reached during reachability probe")
	}

	// ── 3. Evidence collection ───────────────────────────────────────────
	evidenceStart := o.now()
	bundle := o.deps.Evidence.Collect(scanCtx, req, reach)
	o.recordStage(result, "evidence", o.now().Sub(evidenceStart))
	result.EvidenceMissing = bundle.Missing()

	if expired(scanCtx) {
		return o.finishPartial(result, "deadline reached during evidence collection")
	}

	// ── 4. Feature extraction ────────────────────────────────────────────
	fv := features.Extract(req, reach, bundle, summary, o.snap)

	// ── 5. Models and checks, concurrently ───────────────────────────────
	// The check battery is independent of the ensemble; running both sides
	// in parallel keeps the battery off the scan's critical path.
	var wg conc.WaitGroup

	wg.Go(func() {
		o.runModels(scanCtx, req, bundle, fv, reach, result)
	})
	wg.Go(func() {
		checksStart := o.now()
		cats, earned, possible := o.deps.Checks.Run(checks.Input{
			Req:      req,
			Reach:    reach,
			Bundle:   bundle,
			Intel:    summary,
			Features: fv,
			Lists:    o.snap.Lists,
		})
		o.recordStage(result, "checks", o.now().Sub(checksStart))
		result.Categories = cats
		result.CategoryEarned = earned
		result.CategoryPossible = possible
	})
	wg.Wait()

	if expired(scanCtx) && result.Verdict == nil {
		return o.finishPartial(result, "deadline reached during model evaluation")
	}

	// ── 6. Policy and final band ─────────────────────────────────────────
	result.Policy = o.deps.Policy.Evaluate(fv, summary, reach.State)
	if result.Policy.Overridden {
		o.logger.Info("policy override applied",
			"scan_id", req.ID, "rule", result.Policy.Rule, "band", result.Policy.RiskLevel)
		if o.deps.Metrics != nil {
			o.deps.Metrics.PolicyOverrides.WithLabelValues(result.Policy.Rule).Inc()
		}
	}
	result.RiskLevel = riskband.Final(result.Policy, result.Verdict, reach.State, o.snap.Bands)

	return o.finish(result)
}

// runModels executes Stage-1, conditionally Stage-2, and the combiner.
func (o *Orchestrator) runModels(ctx context.Context, req models.ScanRequest, bundle models.EvidenceBundle, fv models.FeatureVector, reach models.ReachabilityResult, result *models.ScanResult) {
	in := ml.PredictInput{
		URL:      req.URL,
		Hostname: req.Hostname,
		Features: fv,
	}

	stage1 := o.deps.Runner.RunStage1(ctx, in)
	result.Stage1 = stage1
	o.recordStage(result, "stage1", stage1.Elapsed)

	// Stage-2 only runs for live targets with renderable content, and only
	// when Stage-1 was not already confident enough.
	var stage2 *models.StageResult
	runStage2 := reach.State == models.ReachOnline &&
		!stage1.ShouldExit &&
		!req.Options.SkipStage2 &&
		ctx.Err() == nil
	if stage1.ShouldExit && o.deps.Metrics != nil {
		o.deps.Metrics.EarlyExits.Inc()
	}

	if runStage2 {
		if bundle.HTML != nil {
			in.PageText = bundle.HTML.Text
		}
		in.Screenshot = bundle.Screenshot
		stage2 = o.deps.Runner.RunStage2(ctx, in)
		result.Stage2 = stage2
		o.recordStage(result, "stage2", stage2.Elapsed)
	}

	verdict := o.deps.Combiner.Combine(ctx, stage1, stage2, fv, reach.State)
	result.Verdict = &verdict
}

// finishGated assembles the terminal result for an intel-gated scan. No
// probing or evidence collection happens; the URL-structure battery still
// runs so the report carries the baseline findings.
func (o *Orchestrator) finishGated(req models.ScanRequest, result *models.ScanResult, rule string, band models.RiskBand) (*models.ScanResult, error) {
	result.Reachability = models.ReachabilityResult{State: models.ReachUnprobed, Signal: "intel-gate"}
	result.Policy = models.PolicyDecision{
		Overridden: true,
		Rule:       rule,
		RiskLevel:  band,
		Reason:     "threat-intel gate: confirmed-malicious reputation",
	}
	result.RiskLevel = band

	fv := features.Extract(req, result.Reachability, models.EvidenceBundle{}, result.Intel, o.snap)
	cats, earned, possible := o.deps.Checks.Run(checks.Input{
		Req:      req,
		Reach:    result.Reachability,
		Intel:    result.Intel,
		Features: fv,
		Lists:    o.snap.Lists,
	})
	result.Categories = cats
	result.CategoryEarned = earned
	result.CategoryPossible = possible

	return o.finish(result)
}

// finishPartial stamps the deadline marker and finalizes what exists. The
// band falls back to the policy/verdict state produced so far.
func (o *Orchestrator) finishPartial(result *models.ScanResult, reason string) (*models.ScanResult, error) {
	result.Incomplete = true
	result.IncompleteReason = reason
	if result.RiskLevel == "" {
		result.RiskLevel = riskband.Final(result.Policy, result.Verdict, result.Reachability.State, o.snap.Bands)
	}
	o.logger.Warn("scan incomplete", "scan_id", result.ScanID, "reason", reason)
	if o.deps.Metrics != nil {
		o.deps.Metrics.ScansIncomplete.Inc()
	}
	return o.finish(result)
}

// finish stamps completion, records metrics and persists the result.
// Persistence failures are logged, never returned: a scored scan is worth
// reporting even when the local database is unavailable.
func (o *Orchestrator) finish(result *models.ScanResult) (*models.ScanResult, error) {
	result.CompletedAt = o.now().UTC()

	if o.deps.Metrics != nil {
		o.deps.Metrics.ScansTotal.
			WithLabelValues(string(result.Reachability.State), string(result.RiskLevel)).
			Inc()
	}

	if o.deps.Store != nil {
		if err := o.deps.Store.SaveResult(result); err != nil {
			o.logger.Warn("persisting scan result failed", "scan_id", result.ScanID, "error", err)
		}
	}

	return result, nil
}

// recordStage stores one stage's wall time and feeds the histogram.
func (o *Orchestrator) recordStage(result *models.ScanResult, stage string, elapsed time.Duration) {
	o.stageMu.Lock()
	result.StageLatencies[stage] = elapsed.Milliseconds()
	o.stageMu.Unlock()
	if o.deps.Metrics != nil {
		o.deps.Metrics.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	}
}

func expired(ctx context.Context) bool {
	return ctx.Err() != nil
}
