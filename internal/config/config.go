package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Snapshot is the immutable configuration one scan runs against. A new
// snapshot is produced by Load; configuration changes take effect on the
// next load, never mid-scan.
type Snapshot struct {
	DBPath string `mapstructure:"db_path"`

	Scan        ScanConfig        `mapstructure:"scan"`
	Intel       IntelConfig       `mapstructure:"intel"`
	Probe       ProbeConfig       `mapstructure:"probe"`
	Evidence    EvidenceConfig    `mapstructure:"evidence"`
	Models      ModelsConfig      `mapstructure:"models"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Policy      PolicyConfig      `mapstructure:"policy"`
	Checks      ChecksConfig      `mapstructure:"checks"`
	Bands       BandsConfig       `mapstructure:"bands"`
	Lists       ListsConfig       `mapstructure:"lists"`
}

// ScanConfig bounds the whole pipeline.
type ScanConfig struct {
	// Deadline caps one scan end to end. The per-request option may
	// shorten it but never extend it.
	Deadline time.Duration `mapstructure:"deadline"`
}

// IntelConfig controls the threat-intel aggregator.
type IntelConfig struct {
	SourceTimeout     time.Duration `mapstructure:"source_timeout"`
	RecencyWindowDays int           `mapstructure:"recency_window_days"`
	CacheSize         int           `mapstructure:"cache_size"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`

	// Feeds are the file-backed reputation feeds the CLI wires as intel
	// sources. Embedders may add API-backed sources programmatically.
	Feeds []FeedRef `mapstructure:"feeds"`
}

// FeedRef names one file-backed reputation feed: a newline-delimited list
// of hostnames.
type FeedRef struct {
	Name string `mapstructure:"name"`
	Tier int    `mapstructure:"tier"`
	Path string `mapstructure:"path"`

	// Severity is assigned to every hit from this feed (low, medium, high,
	// critical).
	Severity string `mapstructure:"severity"`
}

// ProbeConfig carries the reachability prober's per-stage timeouts.
type ProbeConfig struct {
	DNSTimeout   time.Duration `mapstructure:"dns_timeout"`
	TCPTimeout   time.Duration `mapstructure:"tcp_timeout"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	MaxRedirects int           `mapstructure:"max_redirects"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// EvidenceConfig bounds the evidence sub-collectors.
type EvidenceConfig struct {
	CollectorTimeout time.Duration `mapstructure:"collector_timeout"`
	RenderTimeout    time.Duration `mapstructure:"render_timeout"`
}

// ModelRef names one model in an ensemble stage.
type ModelRef struct {
	ID string `mapstructure:"id"`

	// Kind selects the predictor implementation: "trained" calls the
	// configured endpoint, "heuristic-fallback" runs the built-in rules.
	Kind string `mapstructure:"kind"`

	// Weight is this model's share of the stage combination. Weights are
	// relative; the stage runner divides by the responding models' sum.
	Weight float64 `mapstructure:"weight"`

	Endpoint string `mapstructure:"endpoint"`
}

// ModelsConfig defines both ensemble stages.
type ModelsConfig struct {
	Stage1Budget time.Duration `mapstructure:"stage1_budget"`
	Stage2Budget time.Duration `mapstructure:"stage2_budget"`

	// EarlyExitThreshold is the Stage-1 combined confidence at which
	// Stage-2 is skipped. A first-class tunable: raising it trades latency
	// for accuracy.
	EarlyExitThreshold float64 `mapstructure:"early_exit_threshold"`

	Stage1 []ModelRef `mapstructure:"stage1"`
	Stage2 []ModelRef `mapstructure:"stage2"`
}

// CombineWeights are the ensemble-fusion weights the combiner applies.
type CombineWeights struct {
	Stage1 float64 `mapstructure:"stage1"`
	Stage2 float64 `mapstructure:"stage2"`
	Causal float64 `mapstructure:"causal"`
}

// CalibrationConfig parameterizes the conformal calibrator.
type CalibrationConfig struct {
	// Alpha is the miscoverage rate: 0.1 yields a 90% interval.
	Alpha float64 `mapstructure:"alpha"`

	// FallbackWidth is the half-interval applied when a branch has no
	// calibration samples.
	FallbackWidth float64 `mapstructure:"fallback_width"`

	// WithStage2 weighs stage1/stage2/causal when Stage-2 ran;
	// WithoutStage2 weighs stage1/causal when it did not (its Stage2
	// component must be zero).
	WithStage2    CombineWeights `mapstructure:"with_stage2"`
	WithoutStage2 CombineWeights `mapstructure:"without_stage2"`
}

// PolicyConfig carries the tunable thresholds of the hard-override rules.
// Rule order is fixed in code; only the numeric thresholds move.
type PolicyConfig struct {
	YoungDomainMaxAgeDays int     `mapstructure:"young_domain_max_age_days"`
	TIRecencyDays         int     `mapstructure:"ti_recency_days"`
	HighRiskTLDMin        float64 `mapstructure:"high_risk_tld_min"`

	// Disabled lists rule IDs to skip. The two terminal rules (TOMBSTONE,
	// DUAL_TIER1_HITS) cannot be disabled.
	Disabled []string `mapstructure:"disabled"`
}

// ChecksConfig controls the category check engine.
type ChecksConfig struct {
	// Disabled lists check IDs to skip entirely.
	Disabled []string `mapstructure:"disabled"`

	// CategoryWeights scales a category's point totals; 1.0 when unset.
	CategoryWeights map[string]float64 `mapstructure:"category_weights"`
}

// BandsConfig maps probabilities to risk bands per reachability branch.
type BandsConfig struct {
	// Thresholds maps a branch name (ONLINE, OFFLINE, PARKED, WAF,
	// SINKHOLE) to five ascending cutoffs splitting [0,1] into bands A..F.
	Thresholds map[string][]float64 `mapstructure:"thresholds"`
}

// ListsConfig holds the reference data the extractor and checks consume.
type ListsConfig struct {
	// TLDRisk maps a TLD (without dot) to a risk weight in [0,1].
	TLDRisk map[string]float64 `mapstructure:"tld_risk"`

	// FreeHostingSuffixes are registered domains whose subdomains anyone
	// can claim (vercel.app, github.io, ...).
	FreeHostingSuffixes []string `mapstructure:"free_hosting_suffixes"`

	// BrandKeywords are brand names watched for impersonation.
	BrandKeywords []string `mapstructure:"brand_keywords"`

	// PhishingKeywords are lure words counted by the lexical extractor.
	PhishingKeywords []string `mapstructure:"phishing_keywords"`

	// FinancialKeywords trigger the banking/financial URL checks.
	FinancialKeywords []string `mapstructure:"financial_keywords"`
}

// Load reads and parses configuration from a YAML file. If path is empty,
// it searches for threatscore.yaml in the current directory, ./configs and
// ~/.config/threatscore/. Validation failures are fatal here: a malformed
// snapshot must never reach a scan.
func Load(path string) (*Snapshot, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("threatscore")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "threatscore"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading config: %w", err)
	}

	var snap Snapshot
	if err := v.Unmarshal(&snap); err != nil {
		return nil, fmt.Errorf("config: unmarshalling config: %w", err)
	}

	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	snap.normalizeStageWeights()
	return &snap, nil
}

// Validate checks every tunable that could corrupt a scan result. It runs
// once at load time so that per-scan code never has to re-check.
func (s *Snapshot) Validate() error {
	var errs []error

	if s.Scan.Deadline <= 0 {
		errs = append(errs, errors.New("scan.deadline must be positive"))
	}
	if s.Intel.SourceTimeout <= 0 {
		errs = append(errs, errors.New("intel.source_timeout must be positive"))
	}
	if s.Intel.RecencyWindowDays <= 0 {
		errs = append(errs, errors.New("intel.recency_window_days must be positive"))
	}
	if s.Intel.CacheSize <= 0 {
		errs = append(errs, errors.New("intel.cache_size must be positive"))
	}
	for i, feed := range s.Intel.Feeds {
		if feed.Name == "" || feed.Path == "" {
			errs = append(errs, fmt.Errorf("intel.feeds[%d]: name and path are required", i))
		}
		if feed.Tier < 1 || feed.Tier > 3 {
			errs = append(errs, fmt.Errorf("intel.feeds[%d]: tier must be 1, 2 or 3", i))
		}
	}
	if s.Probe.DNSTimeout <= 0 || s.Probe.TCPTimeout <= 0 || s.Probe.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("probe timeouts must all be positive"))
	}
	if s.Probe.MaxRedirects < 0 {
		errs = append(errs, errors.New("probe.max_redirects must not be negative"))
	}
	if s.Evidence.CollectorTimeout <= 0 || s.Evidence.RenderTimeout <= 0 {
		errs = append(errs, errors.New("evidence timeouts must all be positive"))
	}

	if s.Models.EarlyExitThreshold <= 0 || s.Models.EarlyExitThreshold > 1 {
		errs = append(errs, errors.New("models.early_exit_threshold must be in (0,1]"))
	}
	if len(s.Models.Stage1) == 0 {
		errs = append(errs, errors.New("models.stage1 must define at least one model"))
	}
	errs = append(errs, validateModelRefs("stage1", s.Models.Stage1)...)
	errs = append(errs, validateModelRefs("stage2", s.Models.Stage2)...)

	if s.Calibration.Alpha <= 0 || s.Calibration.Alpha >= 1 {
		errs = append(errs, errors.New("calibration.alpha must be in (0,1)"))
	}
	if s.Calibration.FallbackWidth < 0 || s.Calibration.FallbackWidth > 1 {
		errs = append(errs, errors.New("calibration.fallback_width must be in [0,1]"))
	}
	if err := validateCombineWeights("calibration.with_stage2", s.Calibration.WithStage2, true); err != nil {
		errs = append(errs, err)
	}
	if err := validateCombineWeights("calibration.without_stage2", s.Calibration.WithoutStage2, false); err != nil {
		errs = append(errs, err)
	}

	if s.Policy.YoungDomainMaxAgeDays <= 0 {
		errs = append(errs, errors.New("policy.young_domain_max_age_days must be positive"))
	}
	if s.Policy.TIRecencyDays <= 0 {
		errs = append(errs, errors.New("policy.ti_recency_days must be positive"))
	}
	if s.Policy.HighRiskTLDMin <= 0 || s.Policy.HighRiskTLDMin > 1 {
		errs = append(errs, errors.New("policy.high_risk_tld_min must be in (0,1]"))
	}
	for _, id := range s.Policy.Disabled {
		if id == "TOMBSTONE" || id == "DUAL_TIER1_HITS" {
			errs = append(errs, fmt.Errorf("policy rule %s cannot be disabled", id))
		}
	}

	for branch, cuts := range s.Bands.Thresholds {
		if len(cuts) != 5 {
			errs = append(errs, fmt.Errorf("bands.thresholds.%s must have exactly 5 cutoffs", branch))
			continue
		}
		prev := 0.0
		for i, c := range cuts {
			if c < prev || c > 1 {
				errs = append(errs, fmt.Errorf("bands.thresholds.%s cutoff %d out of order or range", branch, i))
				break
			}
			prev = c
		}
	}
	for _, branch := range []string{"ONLINE", "OFFLINE", "PARKED", "WAF", "SINKHOLE"} {
		if _, ok := s.Bands.Thresholds[branch]; !ok {
			errs = append(errs, fmt.Errorf("bands.thresholds missing branch %s", branch))
		}
	}

	for tld, risk := range s.Lists.TLDRisk {
		if risk < 0 || risk > 1 {
			errs = append(errs, fmt.Errorf("lists.tld_risk.%s must be in [0,1]", tld))
		}
	}
	for cat, w := range s.Checks.CategoryWeights {
		if w < 0 {
			errs = append(errs, fmt.Errorf("checks.category_weights.%s must not be negative", cat))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// TLDRiskFor returns the configured risk weight for a TLD, defaulting to a
// low baseline for unlisted TLDs.
func (s *Snapshot) TLDRiskFor(tld string) float64 {
	if r, ok := s.Lists.TLDRisk[tld]; ok {
		return r
	}
	return 0.1
}

// validateModelRefs checks one stage's model definitions.
func validateModelRefs(stage string, refs []ModelRef) []error {
	var errs []error
	sum := 0.0
	for i, ref := range refs {
		if ref.ID == "" {
			errs = append(errs, fmt.Errorf("models.%s[%d]: id is required", stage, i))
		}
		if ref.Kind != "trained" && ref.Kind != "heuristic-fallback" {
			errs = append(errs, fmt.Errorf("models.%s[%d]: kind must be trained or heuristic-fallback", stage, i))
		}
		if ref.Kind == "trained" && ref.Endpoint == "" {
			errs = append(errs, fmt.Errorf("models.%s[%d]: trained models require an endpoint", stage, i))
		}
		if ref.Weight <= 0 {
			errs = append(errs, fmt.Errorf("models.%s[%d]: weight must be positive", stage, i))
		}
		sum += ref.Weight
	}
	if len(refs) > 0 && sum <= 0 {
		errs = append(errs, fmt.Errorf("models.%s: weights must sum to a positive value", stage))
	}
	return errs
}

// validateCombineWeights requires fusion weights to sum to 1 within a
// small tolerance. withStage2 selects whether the Stage2 component is
// allowed to be nonzero.
func validateCombineWeights(name string, w CombineWeights, withStage2 bool) error {
	if !withStage2 && w.Stage2 != 0 {
		return fmt.Errorf("%s.stage2 must be zero", name)
	}
	if w.Stage1 < 0 || w.Stage2 < 0 || w.Causal < 0 {
		return fmt.Errorf("%s weights must not be negative", name)
	}
	sum := w.Stage1 + w.Stage2 + w.Causal
	if math.Abs(sum-1) > 0.01 {
		return fmt.Errorf("%s weights must sum to 1 (got %.3f)", name, sum)
	}
	return nil
}

// normalizeStageWeights rescales each stage's model weights to sum to 1 so
// the stage runners can combine without re-normalizing per scan.
func (s *Snapshot) normalizeStageWeights() {
	normalize := func(refs []ModelRef) {
		sum := 0.0
		for _, r := range refs {
			sum += r.Weight
		}
		if sum <= 0 {
			return
		}
		for i := range refs {
			refs[i].Weight /= sum
		}
	}
	normalize(s.Models.Stage1)
	normalize(s.Models.Stage2)
}
