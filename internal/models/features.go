package models

// LexicalFeatures are derived from the URL string alone and are therefore
// always available, whatever the reachability branch.
type LexicalFeatures struct {
	URLLength      int     `json:"url_length"`
	HostLength     int     `json:"host_length"`
	PathDepth      int     `json:"path_depth"`
	SubdomainCount int     `json:"subdomain_count"`
	HyphenCount    int     `json:"hyphen_count"`
	DigitRatio     float64 `json:"digit_ratio"`

	// HostEntropy is the Shannon entropy of the hostname in bits per
	// character; algorithmically generated domains score high.
	HostEntropy float64 `json:"host_entropy"`

	// BigramRarity is the mean rarity of the hostname's letter bigrams
	// against English-like frequency classes, in [0,1].
	BigramRarity float64 `json:"bigram_rarity"`

	// KeywordHits counts phishing-associated keywords found in the host
	// and path (login, verify, account, ...).
	KeywordHits int `json:"keyword_hits"`

	HasPunycode bool `json:"has_punycode"`
	HasRawIP    bool `json:"has_raw_ip"`
}

// TabularFeatures combine evidence- and intel-derived scalars.
type TabularFeatures struct {
	// DomainAgeDays is -1 when WHOIS evidence was unavailable.
	DomainAgeDays int `json:"domain_age_days"`

	// TLDRisk is the configured risk weight of the registered TLD, in [0,1].
	TLDRisk float64 `json:"tld_risk"`

	TIHitCount int `json:"ti_hit_count"`
	Tier1Hits  int `json:"tier1_hits"`

	// TLSScore grades the certificate posture in [0,1]; 0.5 is the neutral
	// value substituted when TLS evidence is absent.
	TLSScore float64 `json:"tls_score"`

	// ASNReputation grades the hosting network in [0,1]; 0.5 when unknown.
	ASNReputation float64 `json:"asn_reputation"`

	// IsFreeHosting is computed once here and consumed by every category
	// and rule that cares, so the detection cannot drift between call sites.
	IsFreeHosting bool `json:"is_free_hosting"`
}

// CausalSignals are boolean hard indicators evaluated directly against
// evidence. They feed both the combiner and the policy engine.
type CausalSignals struct {
	// FormOriginMismatch: a form posts credentials to a different
	// registered domain than the page's own.
	FormOriginMismatch bool `json:"form_origin_mismatch"`

	// BrandInfraDivergence: a known brand's branding appears on
	// infrastructure that does not belong to the brand.
	BrandInfraDivergence bool `json:"brand_infra_divergence"`

	// AutoDownload: the page triggered a download without interaction.
	AutoDownload bool `json:"auto_download"`

	// Tombstone: the target was previously confirmed malicious and taken
	// down. A standing terminal signal.
	Tombstone bool `json:"tombstone"`

	// Sinkholed: the prober classified the target as a takedown sinkhole.
	Sinkholed bool `json:"sinkholed"`

	// DualTier1: two or more tier-1 intel sources agree.
	DualTier1 bool `json:"dual_tier1"`
}

// FeatureVector is the deterministic projection of a scan's evidence and
// intel into model inputs. It is derived purely from EvidenceBundle +
// TISummary + the request URL; no external state.
type FeatureVector struct {
	Lexical LexicalFeatures `json:"lexical"`
	Tabular TabularFeatures `json:"tabular"`
	Causal  CausalSignals   `json:"causal"`

	// MissingInputs names the evidence the extractor had to substitute
	// neutral defaults for, so calibration can discount confidence.
	MissingInputs []string `json:"missing_inputs,omitempty"`
}

// CausalCount returns how many causal signals fired.
func (f FeatureVector) CausalCount() int {
	n := 0
	for _, b := range []bool{
		f.Causal.FormOriginMismatch,
		f.Causal.BrandInfraDivergence,
		f.Causal.AutoDownload,
		f.Causal.Tombstone,
		f.Causal.Sinkholed,
		f.Causal.DualTier1,
	} {
		if b {
			n++
		}
	}
	return n
}
