package ml

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hakim/threatscore/internal/models"
)

// HeuristicPredictor is the rule-based stand-in used when no trained
// endpoint is configured for a model slot. Each supported model ID maps to
// a deterministic scoring function over the same inputs the trained
// counterpart would see.
type HeuristicPredictor struct{}

// NewHeuristicPredictor returns the built-in fallback predictor.
func NewHeuristicPredictor() *HeuristicPredictor {
	return &HeuristicPredictor{}
}

// Predict dispatches on the model ID.
func (h *HeuristicPredictor) Predict(_ context.Context, modelID string, in PredictInput) (models.ModelPrediction, error) {
	var (
		p       float64
		conf    float64
		explain *models.Explanation
	)

	switch modelID {
	case "lexical-ngram":
		p, conf, explain = h.lexicalNgram(in)
	case "lexical-entropy":
		p, conf, explain = h.lexicalEntropy(in)
	case "tabular-gbm":
		p, conf, explain = h.tabular(in)
	case "text-persuasion":
		p, conf, explain = h.textPersuasion(in)
	case "visual-screenshot":
		p, conf, explain = h.visual(in)
	default:
		return models.ModelPrediction{}, fmt.Errorf("ml: heuristic predictor has no model %q", modelID)
	}

	return models.ModelPrediction{
		ModelID:     modelID,
		Kind:        models.PredictorHeuristic,
		Probability: clamp01(p),
		Confidence:  clamp01(conf),
		Explanation: explain,
	}, nil
}

// lexicalNgram scores URL-token shape: bigram rarity, lure keywords,
// punycode and raw-IP hosts.
func (h *HeuristicPredictor) lexicalNgram(in PredictInput) (float64, float64, *models.Explanation) {
	lex := in.Features.Lexical

	score := 0.15
	var top []models.FeatureWeight

	add := func(feature string, w float64) {
		score += w
		top = append(top, models.FeatureWeight{Feature: feature, Weight: w})
	}

	if lex.BigramRarity > 0.5 {
		add("bigram_rarity", 0.25)
	}
	if lex.KeywordHits >= 2 {
		add("keyword_hits", 0.25)
	} else if lex.KeywordHits == 1 {
		add("keyword_hits", 0.1)
	}
	if lex.HasPunycode {
		add("has_punycode", 0.2)
	}
	if lex.HasRawIP {
		add("has_raw_ip", 0.25)
	}
	if lex.HyphenCount >= 3 {
		add("hyphen_count", 0.1)
	}

	return score, 0.6 + 0.1*float64(min(len(top), 3)), topFeatures(top)
}

// lexicalEntropy scores hostname randomness and length.
func (h *HeuristicPredictor) lexicalEntropy(in PredictInput) (float64, float64, *models.Explanation) {
	lex := in.Features.Lexical

	score := 0.1
	var top []models.FeatureWeight

	if lex.HostEntropy > 3.8 {
		score += 0.4
		top = append(top, models.FeatureWeight{Feature: "host_entropy", Weight: 0.4})
	} else if lex.HostEntropy > 3.3 {
		score += 0.2
		top = append(top, models.FeatureWeight{Feature: "host_entropy", Weight: 0.2})
	}
	if lex.HostLength > 30 {
		score += 0.15
		top = append(top, models.FeatureWeight{Feature: "host_length", Weight: 0.15})
	}
	if lex.DigitRatio > 0.3 {
		score += 0.2
		top = append(top, models.FeatureWeight{Feature: "digit_ratio", Weight: 0.2})
	}
	if lex.SubdomainCount >= 3 {
		score += 0.15
		top = append(top, models.FeatureWeight{Feature: "subdomain_count", Weight: 0.15})
	}

	return score, 0.55 + 0.1*float64(min(len(top), 3)), topFeatures(top)
}

// tabular scores the evidence- and intel-derived scalars. Its confidence
// drops when the inputs it leans on were substituted defaults.
func (h *HeuristicPredictor) tabular(in PredictInput) (float64, float64, *models.Explanation) {
	tab := in.Features.Tabular

	score := 0.1
	var top []models.FeatureWeight

	add := func(feature string, w float64) {
		score += w
		top = append(top, models.FeatureWeight{Feature: feature, Weight: w})
	}

	switch {
	case tab.DomainAgeDays >= 0 && tab.DomainAgeDays < 30:
		add("domain_age_days", 0.3)
	case tab.DomainAgeDays >= 30 && tab.DomainAgeDays < 180:
		add("domain_age_days", 0.15)
	case tab.DomainAgeDays >= 1825:
		add("domain_age_days", -0.1) // long history argues for legitimacy
	}

	if tab.TLDRisk >= 0.6 {
		add("tld_risk", 0.2)
	}
	if tab.TIHitCount > 0 {
		add("ti_hit_count", 0.2)
	}
	if tab.Tier1Hits > 0 {
		add("tier1_hits", 0.2)
	}
	if tab.TLSScore <= 0.3 {
		add("tls_score", 0.15)
	} else if tab.TLSScore >= 0.9 {
		add("tls_score", -0.05)
	}
	if tab.IsFreeHosting {
		add("is_free_hosting", 0.15)
	}

	conf := 0.8
	for _, missing := range in.Features.MissingInputs {
		if missing == "whois" || missing == "tls" {
			conf -= 0.1
		}
	}

	return score, conf, topFeatures(top)
}

// persuasionTactics maps detectable lure phrasings to tactic labels.
var persuasionTactics = []struct {
	Tactic  string
	Needles []string
}{
	{"urgency", []string{"act now", "immediately", "within 24 hours", "expires today", "urgent"}},
	{"fear", []string{"account suspended", "unauthorized access", "unusual activity", "will be closed", "legal action"}},
	{"authority", []string{"security team", "official notice", "compliance department", "verification required"}},
	{"reward", []string{"you have won", "claim your", "free gift", "exclusive offer"}},
	{"credential-lure", []string{"confirm your password", "verify your identity", "update your payment", "re-enter your"}},
}

// textPersuasion scores social-engineering tactics in the aggregated page
// text.
func (h *HeuristicPredictor) textPersuasion(in PredictInput) (float64, float64, *models.Explanation) {
	if in.PageText == "" {
		// Nothing to read: neutral probability, low confidence.
		return 0.5, 0.2, nil
	}
	text := strings.ToLower(in.PageText)

	var tactics []string
	for _, t := range persuasionTactics {
		for _, needle := range t.Needles {
			if strings.Contains(text, needle) {
				tactics = append(tactics, t.Tactic)
				break
			}
		}
	}

	score := 0.1 + 0.22*float64(len(tactics))
	conf := 0.5 + 0.1*float64(min(len(tactics), 4))

	var explain *models.Explanation
	if len(tactics) > 0 {
		explain = &models.Explanation{Tactics: tactics}
	}
	return score, conf, explain
}

// visual scores screenshot-derived flags.
func (h *HeuristicPredictor) visual(in PredictInput) (float64, float64, *models.Explanation) {
	shot := in.Screenshot
	if shot == nil {
		return 0.5, 0.2, nil
	}

	score := 0.1
	var top []models.FeatureWeight
	if shot.BrandLogoDetected {
		score += 0.45
		top = append(top, models.FeatureWeight{Feature: "brand_logo_detected", Weight: 0.45})
	}
	if shot.LoginFormVisible {
		score += 0.25
		top = append(top, models.FeatureWeight{Feature: "login_form_visible", Weight: 0.25})
	}

	return score, 0.7, topFeatures(top)
}

// topFeatures packages feature weights into an Explanation, most
// influential first. Returns nil when nothing contributed.
func topFeatures(weights []models.FeatureWeight) *models.Explanation {
	if len(weights) == 0 {
		return nil
	}
	sort.Slice(weights, func(i, j int) bool {
		return abs(weights[i].Weight) > abs(weights[j].Weight)
	})
	return &models.Explanation{TopFeatures: weights}
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

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
