package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSnapshot returns a Snapshot with the shipped defaults. Every
// value here is a tunable, not a constant: the YAML file written by
// WriteDefault exposes all of them.
func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		DBPath: "threatscore.db",
		Scan: ScanConfig{
			Deadline: 15 * time.Second,
		},
		Intel: IntelConfig{
			SourceTimeout:     2 * time.Second,
			RecencyWindowDays: 90,
			CacheSize:         4096,
			CacheTTL:          15 * time.Minute,
		},
		Probe: ProbeConfig{
			DNSTimeout:   2 * time.Second,
			TCPTimeout:   3 * time.Second,
			HTTPTimeout:  5 * time.Second,
			MaxRedirects: 5,
			MaxBodyBytes: 256 * 1024,
		},
		Evidence: EvidenceConfig{
			CollectorTimeout: 4 * time.Second,
			RenderTimeout:    8 * time.Second,
		},
		Models: ModelsConfig{
			Stage1Budget:       2 * time.Second,
			Stage2Budget:       5 * time.Second,
			EarlyExitThreshold: 0.85,
			Stage1: []ModelRef{
				{ID: "lexical-ngram", Kind: "heuristic-fallback", Weight: 0.4},
				{ID: "lexical-entropy", Kind: "heuristic-fallback", Weight: 0.2},
				{ID: "tabular-gbm", Kind: "heuristic-fallback", Weight: 0.4},
			},
			Stage2: []ModelRef{
				{ID: "text-persuasion", Kind: "heuristic-fallback", Weight: 0.6},
				{ID: "visual-screenshot", Kind: "heuristic-fallback", Weight: 0.4},
			},
		},
		Calibration: CalibrationConfig{
			Alpha:         0.1,
			FallbackWidth: 0.25,
			WithStage2:    CombineWeights{Stage1: 0.35, Stage2: 0.45, Causal: 0.20},
			WithoutStage2: CombineWeights{Stage1: 0.75, Causal: 0.25},
		},
		Policy: PolicyConfig{
			YoungDomainMaxAgeDays: 180,
			TIRecencyDays:         90,
			HighRiskTLDMin:        0.6,
		},
		Checks: ChecksConfig{
			CategoryWeights: map[string]float64{},
		},
		Bands: BandsConfig{
			// Five ascending cutoffs per branch splitting [0,1] into A..F.
			// Unreachable branches keep wider safe bands: the same
			// probability means less for a site nobody can visit.
			Thresholds: map[string][]float64{
				"ONLINE":   {0.10, 0.25, 0.45, 0.65, 0.85},
				"OFFLINE":  {0.20, 0.40, 0.60, 0.80, 0.92},
				"PARKED":   {0.20, 0.40, 0.60, 0.80, 0.92},
				"WAF":      {0.15, 0.30, 0.50, 0.70, 0.88},
				"SINKHOLE": {0.10, 0.20, 0.35, 0.55, 0.75},
			},
		},
		Lists: ListsConfig{
			TLDRisk: map[string]float64{
				"zip": 0.9, "mov": 0.85, "tk": 0.85, "ml": 0.8, "ga": 0.8,
				"cf": 0.8, "gq": 0.8, "top": 0.7, "xyz": 0.6, "icu": 0.7,
				"work": 0.6, "click": 0.7, "link": 0.6, "rest": 0.6,
				"com": 0.15, "org": 0.12, "net": 0.15, "edu": 0.05,
				"gov": 0.02, "io": 0.25, "app": 0.25, "dev": 0.25,
			},
			FreeHostingSuffixes: []string{
				"vercel.app", "netlify.app", "github.io", "gitlab.io",
				"pages.dev", "web.app", "firebaseapp.com", "herokuapp.com",
				"glitch.me", "repl.co", "000webhostapp.com", "weebly.com",
				"wixsite.com", "blogspot.com", "surge.sh", "onrender.com",
			},
			BrandKeywords: []string{
				"paypal", "apple", "amazon", "microsoft", "google",
				"netflix", "facebook", "instagram", "whatsapp", "chase",
				"wellsfargo", "bankofamerica", "coinbase", "binance",
				"dhl", "fedex", "ups", "usps", "irs", "docusign",
			},
			PhishingKeywords: []string{
				"login", "signin", "verify", "verification", "secure",
				"account", "update", "confirm", "password", "billing",
				"suspend", "unlock", "recover", "wallet", "support",
			},
			FinancialKeywords: []string{
				"bank", "banking", "payment", "invoice", "transfer",
				"credit", "debit", "iban", "swift", "crypto", "refund",
			},
		},
	}
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(defaultYAML())
	if err != nil {
		return fmt.Errorf("config: marshalling default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: writing config file: %w", err)
	}

	return nil
}

// defaultYAML converts the default snapshot into a plain map keyed by the
// mapstructure tags so the written YAML round-trips through Load.
// Durations are rendered as strings ("2s") because viper parses them back
// through its duration hook.
func defaultYAML() map[string]any {
	s := DefaultSnapshot()

	stageRefs := func(refs []ModelRef) []map[string]any {
		out := make([]map[string]any, 0, len(refs))
		for _, r := range refs {
			m := map[string]any{
				"id":     r.ID,
				"kind":   r.Kind,
				"weight": r.Weight,
			}
			if r.Endpoint != "" {
				m["endpoint"] = r.Endpoint
			}
			out = append(out, m)
		}
		return out
	}

	return map[string]any{
		"db_path": s.DBPath,
		"scan": map[string]any{
			"deadline": s.Scan.Deadline.String(),
		},
		"intel": map[string]any{
			"source_timeout":      s.Intel.SourceTimeout.String(),
			"recency_window_days": s.Intel.RecencyWindowDays,
			"cache_size":          s.Intel.CacheSize,
			"cache_ttl":           s.Intel.CacheTTL.String(),
			"feeds":               []map[string]any{},
		},
		"probe": map[string]any{
			"dns_timeout":    s.Probe.DNSTimeout.String(),
			"tcp_timeout":    s.Probe.TCPTimeout.String(),
			"http_timeout":   s.Probe.HTTPTimeout.String(),
			"max_redirects":  s.Probe.MaxRedirects,
			"max_body_bytes": s.Probe.MaxBodyBytes,
		},
		"evidence": map[string]any{
			"collector_timeout": s.Evidence.CollectorTimeout.String(),
			"render_timeout":    s.Evidence.RenderTimeout.String(),
		},
		"models": map[string]any{
			"stage1_budget":        s.Models.Stage1Budget.String(),
			"stage2_budget":        s.Models.Stage2Budget.String(),
			"early_exit_threshold": s.Models.EarlyExitThreshold,
			"stage1":               stageRefs(s.Models.Stage1),
			"stage2":               stageRefs(s.Models.Stage2),
		},
		"calibration": map[string]any{
			"alpha":          s.Calibration.Alpha,
			"fallback_width": s.Calibration.FallbackWidth,
			"with_stage2": map[string]any{
				"stage1": s.Calibration.WithStage2.Stage1,
				"stage2": s.Calibration.WithStage2.Stage2,
				"causal": s.Calibration.WithStage2.Causal,
			},
			"without_stage2": map[string]any{
				"stage1": s.Calibration.WithoutStage2.Stage1,
				"causal": s.Calibration.WithoutStage2.Causal,
			},
		},
		"policy": map[string]any{
			"young_domain_max_age_days": s.Policy.YoungDomainMaxAgeDays,
			"ti_recency_days":           s.Policy.TIRecencyDays,
			"high_risk_tld_min":         s.Policy.HighRiskTLDMin,
		},
		"checks": map[string]any{
			"disabled":         []string{},
			"category_weights": map[string]float64{},
		},
		"bands": map[string]any{
			"thresholds": s.Bands.Thresholds,
		},
		"lists": map[string]any{
			"tld_risk":              s.Lists.TLDRisk,
			"free_hosting_suffixes": s.Lists.FreeHostingSuffixes,
			"brand_keywords":        s.Lists.BrandKeywords,
			"phishing_keywords":     s.Lists.PhishingKeywords,
			"financial_keywords":    s.Lists.FinancialKeywords,
		},
	}
}
