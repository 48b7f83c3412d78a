// Package ml runs the two classifier ensemble stages through a uniform
// prediction interface, independent of how each model is served.
package ml

import (
	"context"
	"fmt"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

// PredictInput is everything a model may look at. Stage-1 models read the
// URL and feature vector; Stage-2 models additionally read page text and
// the screenshot.
type PredictInput struct {
	URL      string               `json:"url"`
	Hostname string               `json:"hostname"`
	Features models.FeatureVector `json:"features"`

	// PageText is the aggregated visible page text (Stage-2 only).
	PageText string `json:"page_text,omitempty"`

	// Screenshot is the captured screenshot evidence (Stage-2 only).
	Screenshot *models.ScreenshotEvidence `json:"screenshot,omitempty"`
}

// Predictor produces one model's prediction. Implementations must be safe
// to invoke concurrently from multiple scans.
type Predictor interface {
	Predict(ctx context.Context, modelID string, in PredictInput) (models.ModelPrediction, error)
}

// Selector routes a model reference to the predictor its configured kind
// names. The fallback heuristics are an explicit predictor variant chosen
// by configuration; a missing endpoint is a config error, never a silent
// downgrade at a call site.
type Selector struct {
	heuristic Predictor
	trained   Predictor
}

// NewSelector builds the kind-based router. trained may be nil when the
// configuration defines no trained models.
func NewSelector(heuristic, trained Predictor) *Selector {
	return &Selector{heuristic: heuristic, trained: trained}
}

// Predict dispatches on the reference's kind.
func (s *Selector) Predict(ctx context.Context, ref config.ModelRef, in PredictInput) (models.ModelPrediction, error) {
	switch models.PredictorKind(ref.Kind) {
	case models.PredictorHeuristic:
		return s.heuristic.Predict(ctx, ref.ID, in)
	case models.PredictorTrained:
		if s.trained == nil {
			return models.ModelPrediction{}, fmt.Errorf("ml: model %s is configured as trained but no trained predictor is wired", ref.ID)
		}
		return s.trained.Predict(ctx, ref.ID, in)
	default:
		return models.ModelPrediction{}, fmt.Errorf("ml: model %s has unknown kind %q", ref.ID, ref.Kind)
	}
}
