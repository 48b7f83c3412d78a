package models

import "time"

// FeatureWeight attributes part of a prediction to a named feature.
type FeatureWeight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// Explanation is the optional structured reasoning attached to a
// prediction: the most influential features and any persuasion tactics a
// text model detected.
type Explanation struct {
	TopFeatures []FeatureWeight `json:"top_features,omitempty"`
	Tactics     []string        `json:"tactics,omitempty"`
}

// ModelPrediction is the output of one model invocation.
type ModelPrediction struct {
	ModelID     string        `json:"model_id"`
	Kind        PredictorKind `json:"kind"`
	Probability float64       `json:"probability"` // [0,1]
	Confidence  float64       `json:"confidence"`  // [0,1]
	Explanation *Explanation  `json:"explanation,omitempty"`
}

// StageResult aggregates the predictions of one ensemble stage.
type StageResult struct {
	Stage       int               `json:"stage"`
	Predictions []ModelPrediction `json:"predictions"`

	// Probability and Confidence are the weighted combination of the
	// stage's predictions.
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`

	// ShouldExit is set on Stage-1 when its combined confidence clears the
	// early-exit threshold, telling the orchestrator to skip Stage-2.
	ShouldExit bool `json:"should_exit"`

	Elapsed time.Duration `json:"elapsed_ns"`
}

// GraphEntry is one node of the decision graph: a component and its
// numeric contribution to the final probability.
type GraphEntry struct {
	Component    string    `json:"component"`
	Contribution float64   `json:"contribution"`
	At           time.Time `json:"at"`
}

// CalibratedVerdict is the combiner's output: a point probability with a
// conformal confidence interval and the audit trail that produced it.
type CalibratedVerdict struct {
	Probability float64 `json:"probability"`
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`

	// Method identifies how the interval was produced, e.g.
	// "split-conformal" or "fallback-width".
	Method string `json:"method"`

	Graph []GraphEntry `json:"graph,omitempty"`
}

// PolicyDecision records whether a hard rule superseded the calibrated
// probability, and why.
type PolicyDecision struct {
	Overridden bool     `json:"overridden"`
	Rule       string   `json:"rule,omitempty"`
	RiskLevel  RiskBand `json:"risk_level,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}
