package ml

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

// Runner executes the ensemble stages. Models within a stage run
// concurrently; the whole stage is bounded by its configured budget.
type Runner struct {
	selector *Selector
	cfg      config.ModelsConfig
	logger   *slog.Logger
}

// NewRunner builds a Runner.
func NewRunner(selector *Selector, cfg config.ModelsConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{selector: selector, cfg: cfg, logger: logger}
}

// RunStage1 runs the fast ensemble over lexical+tabular features. The
// result's ShouldExit flag is set when the combined confidence clears the
// early-exit threshold, in which case the caller must skip Stage-2.
func (r *Runner) RunStage1(ctx context.Context, in PredictInput) *models.StageResult {
	res := r.runStage(ctx, 1, r.cfg.Stage1, r.cfg.Stage1Budget, in)
	res.ShouldExit = res.Confidence >= r.cfg.EarlyExitThreshold
	return res
}

// RunStage2 runs the deep ensemble over text/visual evidence. Callers only
// invoke it when Stage-1 did not exit early and the target was ONLINE.
func (r *Runner) RunStage2(ctx context.Context, in PredictInput) *models.StageResult {
	return r.runStage(ctx, 2, r.cfg.Stage2, r.cfg.Stage2Budget, in)
}

// runStage fans the stage's models out concurrently under the stage
// budget and combines the successful predictions by weighted average.
// Weights of failed models are redistributed across the ones that
// answered; a stage where every model failed reports the neutral prior
// with zero confidence.
func (r *Runner) runStage(ctx context.Context, stage int, refs []config.ModelRef, budget time.Duration, in PredictInput) *models.StageResult {
	start := time.Now()

	stageCtx := ctx
	if budget > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	type weighted struct {
		pred   models.ModelPrediction
		weight float64
	}

	var (
		mu  sync.Mutex
		got []weighted
	)

	p := pool.New().WithContext(stageCtx)
	for _, ref := range refs {
		p.Go(func(ctx context.Context) error {
			pred, err := r.predictOne(ctx, ref, in)
			if err != nil {
				r.logger.Debug("model prediction failed", "stage", stage, "model", ref.ID, "error", err)
				return nil
			}
			mu.Lock()
			got = append(got, weighted{pred: pred, weight: ref.Weight})
			mu.Unlock()
			return nil
		})
	}
	_ = p.Wait()

	result := &models.StageResult{
		Stage:   stage,
		Elapsed: time.Since(start),
	}

	if len(got) == 0 {
		result.Probability = 0.5
		result.Confidence = 0
		return result
	}

	var probSum, confSum, weightSum float64
	for _, w := range got {
		result.Predictions = append(result.Predictions, w.pred)
		probSum += w.weight * w.pred.Probability
		confSum += w.weight * w.pred.Confidence
		weightSum += w.weight
	}
	result.Probability = probSum / weightSum
	result.Confidence = confSum / weightSum
	return result
}

// predictOne shields the stage from a panicking predictor.
func (r *Runner) predictOne(ctx context.Context, ref config.ModelRef, in PredictInput) (pred models.ModelPrediction, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("ml: predictor %s panicked: %v", ref.ID, rec)
		}
	}()
	return r.selector.Predict(ctx, ref, in)
}
