// Package features projects a scan's evidence, intel and reachability into
// the deterministic feature vector the models and policy engine consume.
// Extraction is a pure function: no I/O, no external state.
package features

import (
	"net"
	"strings"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

// Extract derives the FeatureVector for a scan. Absent evidence is
// substituted with neutral defaults and recorded in MissingInputs so the
// calibrator can discount confidence accordingly.
func Extract(req models.ScanRequest, reach models.ReachabilityResult, bundle models.EvidenceBundle, intel models.TISummary, snap *config.Snapshot) models.FeatureVector {
	fv := models.FeatureVector{
		Lexical:       extractLexical(req, snap),
		MissingInputs: bundle.Missing(),
	}
	fv.Tabular = extractTabular(req, bundle, intel, snap)
	fv.Causal = extractCausal(req, reach, bundle, intel, snap)
	return fv
}

// extractLexical computes the URL-string features. These are available on
// every reachability branch.
func extractLexical(req models.ScanRequest, snap *config.Snapshot) models.LexicalFeatures {
	u := req.ParsedURL()
	host := req.Hostname
	path := u.Path

	pathDepth := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			pathDepth++
		}
	}

	return models.LexicalFeatures{
		URLLength:      len(req.URL),
		HostLength:     len(host),
		PathDepth:      pathDepth,
		SubdomainCount: SubdomainCount(host),
		HyphenCount:    strings.Count(host, "-"),
		DigitRatio:     digitRatio(host),
		HostEntropy:    shannonEntropy(strings.ReplaceAll(host, ".", "")),
		BigramRarity:   bigramRarity(host),
		KeywordHits:    keywordHits(host+path, snap.Lists.PhishingKeywords),
		HasPunycode:    hasPunycode(host),
		HasRawIP:       net.ParseIP(host) != nil,
	}
}

// extractTabular combines evidence- and intel-derived scalars, noting any
// neutral substitutions on the vector's MissingInputs list.
func extractTabular(req models.ScanRequest, bundle models.EvidenceBundle, intel models.TISummary, snap *config.Snapshot) models.TabularFeatures {
	t := models.TabularFeatures{
		TLDRisk:    snap.TLDRiskFor(TLD(req.Hostname)),
		TIHitCount: intel.Total,
		Tier1Hits:  intel.Tier1Hits,

		// isFreeHosting is computed once, here, for every consumer;
		// category checks and policy rules read this field rather than
		// re-deriving it.
		IsFreeHosting: IsFreeHosting(req.Hostname, snap.Lists.FreeHostingSuffixes),

		// No collaborator supplies ASN reputation yet; hold the neutral
		// midpoint until one does.
		ASNReputation: 0.5,
	}

	if bundle.WHOIS != nil {
		t.DomainAgeDays = bundle.WHOIS.AgeDays
	} else {
		t.DomainAgeDays = -1 // unknown, distinct from "zero days old"
	}

	t.TLSScore = tlsScore(bundle.TLS)

	return t
}

// tlsScore grades the certificate posture in [0,1]; 0.5 is the neutral
// value for absent evidence.
func tlsScore(tls *models.TLSEvidence) float64 {
	switch {
	case tls == nil:
		return 0.5
	case tls.SelfSigned:
		return 0.2
	case !tls.Valid:
		return 0.1
	case tls.DaysToExpiry < 0:
		return 0.3
	case tls.DaysToExpiry < 14:
		return 0.6
	default:
		return 0.9
	}
}

// extractCausal evaluates the boolean hard indicators directly against
// evidence. Each is a standalone rule, not a learned signal.
func extractCausal(req models.ScanRequest, reach models.ReachabilityResult, bundle models.EvidenceBundle, intel models.TISummary, snap *config.Snapshot) models.CausalSignals {
	c := models.CausalSignals{
		DualTier1: intel.DualTier1 || intel.Tier1Hits >= 2,
		Sinkholed: reach.State == models.ReachSinkhole,
	}

	// Tombstone: the target was previously confirmed malicious (any intel
	// record) and is now a takedown sinkhole.
	c.Tombstone = c.Sinkholed && intel.Total > 0

	pageDomain := RegisteredDomain(req.Hostname)

	if bundle.HTML != nil {
		c.AutoDownload = bundle.HTML.AutoDownload

		// Form-origin mismatch: a form posts to a different registered
		// domain than the page's own.
		for _, form := range bundle.HTML.Forms {
			if form.ActionHost == "" {
				continue
			}
			if form.ExternalPost || RegisteredDomain(form.ActionHost) != pageDomain {
				c.FormOriginMismatch = true
				break
			}
		}
	}

	c.BrandInfraDivergence = brandInfraDivergence(req.Hostname, pageDomain, bundle, snap.Lists.BrandKeywords)

	return c
}

// brandInfraDivergence fires when brand identity shows up on
// infrastructure that does not belong to the brand: either a recognized
// brand logo in the screenshot, or a watched brand name embedded in the
// hostname outside the brand's own registered domain.
func brandInfraDivergence(host, pageDomain string, bundle models.EvidenceBundle, brands []string) bool {
	if bundle.Screenshot != nil && bundle.Screenshot.BrandLogoDetected {
		brand := strings.ToLower(bundle.Screenshot.DetectedBrand)
		if brand != "" && !strings.Contains(pageDomain, brand) {
			return true
		}
	}

	regLabel := pageDomain
	if i := strings.Index(pageDomain, "."); i > 0 {
		regLabel = pageDomain[:i]
	}
	for _, brand := range brands {
		if !strings.Contains(host, brand) {
			continue
		}
		// The brand owning its own registered domain is not divergence.
		if regLabel == brand {
			continue
		}
		return true
	}
	return false
}

// IsFreeHosting reports whether host sits on a free-hosting provider's
// shared suffix.
func IsFreeHosting(host string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}
