package calibrate

import (
	"context"
	"log/slog"
	"time"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

// Combiner fuses stage probabilities and the causal-signal contribution
// into the final calibrated verdict.
type Combiner struct {
	store  Store
	cfg    config.CalibrationConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewCombiner builds a Combiner over a calibration store.
func NewCombiner(store Store, cfg config.CalibrationConfig, logger *slog.Logger) *Combiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Combiner{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// causalScore maps the count of fired hard indicators to a probability
// contribution. Hard indicators are individually strong: one firing is
// already an even-odds signal, three or more is near-certain.
func causalScore(count int) float64 {
	switch {
	case count <= 0:
		return 0.05
	case count == 1:
		return 0.5
	case count == 2:
		return 0.8
	default:
		return 0.95
	}
}

// Combine fuses the stage results with the causal contribution:
//
//	p = w1·stage1 + w2·stage2 + w3·causal   when Stage-2 ran
//	p = w1'·stage1 + w2'·causal             when it did not
//
// then applies split-conformal calibration from the branch's sample set
// to produce the confidence interval. The decision graph records every
// component's weighted contribution in evaluation order.
func (c *Combiner) Combine(ctx context.Context, stage1, stage2 *models.StageResult, fv models.FeatureVector, branch models.Reachability) models.CalibratedVerdict {
	s1 := 0.5 // neutral prior when the stage never produced a result
	if stage1 != nil {
		s1 = stage1.Probability
	}
	causal := causalScore(fv.CausalCount())

	var (
		p     float64
		graph []models.GraphEntry
	)

	if stage2 != nil {
		w := c.cfg.WithStage2
		p = w.Stage1*s1 + w.Stage2*stage2.Probability + w.Causal*causal
		graph = append(graph,
			models.GraphEntry{Component: "stage1", Contribution: w.Stage1 * s1, At: c.now()},
			models.GraphEntry{Component: "stage2", Contribution: w.Stage2 * stage2.Probability, At: c.now()},
			models.GraphEntry{Component: "causal", Contribution: w.Causal * causal, At: c.now()},
		)
	} else {
		w := c.cfg.WithoutStage2
		p = w.Stage1*s1 + w.Causal*causal
		graph = append(graph,
			models.GraphEntry{Component: "stage1", Contribution: w.Stage1 * s1, At: c.now()},
			models.GraphEntry{Component: "causal", Contribution: w.Causal * causal, At: c.now()},
		)
	}

	width, method := c.intervalWidth(ctx, branch)

	// Missing evidence widens the interval: a verdict computed from
	// substituted defaults deserves less certainty than its point estimate
	// alone suggests.
	width += 0.03 * float64(len(fv.MissingInputs))
	if width > 0.5 {
		width = 0.5
	}

	graph = append(graph, models.GraphEntry{Component: "calibration:" + method, Contribution: width, At: c.now()})

	return models.CalibratedVerdict{
		Probability: clamp01(p),
		Lower:       clamp01(p - width),
		Upper:       clamp01(p + width),
		Method:      method,
		Graph:       graph,
	}
}

// intervalWidth loads the branch's calibration set and computes the
// conformal half-width, degrading to the configured fallback width when
// no samples exist or the store fails.
func (c *Combiner) intervalWidth(ctx context.Context, branch models.Reachability) (float64, string) {
	samples, err := c.store.Samples(ctx, branch)
	if err != nil {
		c.logger.Warn("calibration store failed", "branch", branch, "error", err)
		return c.cfg.FallbackWidth, "fallback-width"
	}

	width, ok := conformalWidth(samples, c.cfg.Alpha)
	if !ok {
		return c.cfg.FallbackWidth, "fallback-width"
	}
	return width, "split-conformal"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
