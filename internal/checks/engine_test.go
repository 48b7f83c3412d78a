package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/threatscore/internal/config"
	"github.com/hakim/threatscore/internal/models"
)

func testLists() config.ListsConfig {
	return config.ListsConfig{
		BrandKeywords:     []string{"paypal", "apple", "chase"},
		PhishingKeywords:  []string{"login", "verify", "secure"},
		FinancialKeywords: []string{"bank", "payment", "iban"},
		FreeHostingSuffixes: []string{
			"vercel.app", "github.io", "netlify.app",
		},
		TLDRisk: map[string]float64{"tk": 0.85, "com": 0.15},
	}
}

func mustRequest(t *testing.T, rawURL string) models.ScanRequest {
	t.Helper()
	req, err := models.NewScanRequest(rawURL, models.ScanOptions{})
	require.NoError(t, err)
	return req
}

func findCategory(t *testing.T, cats []models.CategoryResult, name string) models.CategoryResult {
	t.Helper()
	for _, c := range cats {
		if c.Category == name {
			return c
		}
	}
	t.Fatalf("category %s not in results", name)
	return models.CategoryResult{}
}

func findCheck(t *testing.T, cats []models.CategoryResult, id string) models.CheckResult {
	t.Helper()
	for _, cat := range cats {
		for _, c := range cat.Checks {
			if c.ID == id {
				return c
			}
		}
	}
	t.Fatalf("check %s not in results", id)
	return models.CheckResult{}
}

func TestRun_OfflineBaselineBattery(t *testing.T) {
	// Scenario: a brand-impersonating URL on free hosting that never
	// resolves. The URL-structure checks must still fire.
	engine := NewEngine(config.ChecksConfig{}, nil)
	req := mustRequest(t, "https://paypal-com.vercel.app/login")

	in := Input{
		Req:   req,
		Reach: models.ReachabilityResult{State: models.ReachOffline, FailedStage: "dns"},
		Features: models.FeatureVector{
			Lexical: models.LexicalFeatures{KeywordHits: 1, SubdomainCount: 1},
			Tabular: models.TabularFeatures{IsFreeHosting: true, TLDRisk: 0.25},
		},
		Lists: testLists(),
	}

	cats, earned, possible := engine.Run(in)

	assert.Positive(t, possible, "URL checks must keep the battery alive offline")
	assert.Positive(t, earned)

	free := findCheck(t, cats, "BRAND_FREE_HOSTING_IMPERSONATION")
	assert.Equal(t, models.CheckFail, free.Status)
	assert.Equal(t, 25, free.Points)

	// TLS evidence is unobtainable offline: the whole category is skipped,
	// contributing to neither total.
	tlsCat := findCategory(t, cats, "tls")
	assert.True(t, tlsCat.Skipped)
	assert.Zero(t, tlsCat.Possible)

	identCat := findCategory(t, cats, "identity_theft")
	assert.True(t, identCat.Skipped)
}

func TestRun_SubdomainImpersonation(t *testing.T) {
	engine := NewEngine(config.ChecksConfig{}, nil)
	req := mustRequest(t, "https://paypal-com.shadyhost.top/login")

	cats, _, _ := engine.Run(Input{
		Req:   req,
		Reach: models.ReachabilityResult{State: models.ReachOffline, FailedStage: "dns"},
		Lists: testLists(),
	})

	sub := findCheck(t, cats, "PHISH_SUBDOMAIN_IMPERSONATION")
	assert.Equal(t, models.CheckFail, sub.Status)
	assert.Equal(t, 25, sub.Points)
	assert.Equal(t, "paypal", sub.Evidence["brand"])
}

func TestRun_InfoWhenEvidenceAllowedButAbsent(t *testing.T) {
	engine := NewEngine(config.ChecksConfig{}, nil)
	req := mustRequest(t, "https://example.com")

	// OFFLINE permits WHOIS collection; an empty bundle means collection
	// failed, so domain checks must be INFO, not skipped and not PASS.
	in := Input{
		Req:   req,
		Reach: models.ReachabilityResult{State: models.ReachOffline},
		Lists: testLists(),
	}

	cats, earned, possible := engine.Run(in)

	age := findCheck(t, cats, "DOMAIN_AGE")
	assert.False(t, age.Skipped)
	assert.Equal(t, models.CheckInfo, age.Status)

	// INFO counts toward neither earned nor possible.
	domainCat := findCategory(t, cats, "domain")
	assert.False(t, domainCat.Skipped)
	assert.Zero(t, domainCat.Earned)
	assert.Zero(t, domainCat.Possible)

	_ = earned
	assert.Positive(t, possible)
}

func TestRun_OnlineFullBattery(t *testing.T) {
	engine := NewEngine(config.ChecksConfig{}, nil)
	req := mustRequest(t, "https://shady.example.com")

	in := Input{
		Req:   req,
		Reach: models.ReachabilityResult{State: models.ReachOnline, HTTPStatus: 200},
		Bundle: models.EvidenceBundle{
			WHOIS: &models.WHOISEvidence{AgeDays: 12, Privacy: true, Registrar: "reg"},
			DNS:   &models.DNSEvidence{HasA: true, HasMX: true, NameServers: []string{"ns1", "ns2"}},
			TLS:   &models.TLSEvidence{Valid: false, SelfSigned: true, DaysToExpiry: 100},
			HTML: &models.HTMLEvidence{
				Forms: []models.HTMLForm{{HasPassword: true, ExternalPost: true, ActionHost: "evil.example.net"}},
			},
			Screenshot: &models.ScreenshotEvidence{LoginFormVisible: true, BrandLogoDetected: true, DetectedBrand: "paypal"},
		},
		Lists: testLists(),
	}

	cats, earned, _ := engine.Run(in)

	assert.Equal(t, models.CheckFail, findCheck(t, cats, "DOMAIN_AGE").Status)
	assert.Equal(t, models.CheckFail, findCheck(t, cats, "TLS_INVALID_CHAIN").Status)
	assert.Equal(t, models.CheckFail, findCheck(t, cats, "CONTENT_EXTERNAL_FORM_POST").Status)
	assert.Equal(t, models.CheckFail, findCheck(t, cats, "IDENT_CREDENTIAL_HARVEST").Status)
	assert.Equal(t, models.CheckWarn, findCheck(t, cats, "EMAIL_SPF_MISSING").Status)
	assert.Positive(t, earned)

	// Nothing is skipped for an ONLINE target.
	for _, cat := range cats {
		assert.False(t, cat.Skipped, "category %s should run online", cat.Category)
	}
}

func TestRun_ParkedScope(t *testing.T) {
	engine := NewEngine(config.ChecksConfig{}, nil)
	req := mustRequest(t, "https://example.com")

	in := Input{
		Req:   req,
		Reach: models.ReachabilityResult{State: models.ReachParked, Signal: "parked-template"},
		Bundle: models.EvidenceBundle{
			WHOIS: &models.WHOISEvidence{AgeDays: 3650, Registrar: "reg"},
			HTML:  &models.HTMLEvidence{Title: "domain for sale"},
		},
		Lists: testLists(),
	}

	cats, _, _ := engine.Run(in)

	// PARKED permits whois and html, not dns/tls/screenshot.
	assert.False(t, findCategory(t, cats, "domain").Skipped)
	assert.False(t, findCategory(t, cats, "content").Skipped)
	assert.True(t, findCategory(t, cats, "network").Skipped)
	assert.True(t, findCategory(t, cats, "tls").Skipped)
	assert.True(t, findCategory(t, cats, "identity_theft").Skipped)
}

func TestRun_DisabledCheckExcluded(t *testing.T) {
	engine := NewEngine(config.ChecksConfig{Disabled: []string{"TI_TIER1_HIT"}}, nil)
	req := mustRequest(t, "https://example.com")

	cats, _, _ := engine.Run(Input{
		Req:   req,
		Reach: models.ReachabilityResult{State: models.ReachOnline},
		Intel: models.TISummary{Tier1Hits: 3},
		Lists: testLists(),
	})

	for _, cat := range cats {
		for _, c := range cat.Checks {
			assert.NotEqual(t, "TI_TIER1_HIT", c.ID)
		}
	}
}

func TestRun_CategoryWeightScaling(t *testing.T) {
	req := mustRequest(t, "https://example.com")
	in := Input{
		Req:   req,
		Reach: models.ReachabilityResult{State: models.ReachOnline},
		Intel: models.TISummary{Tier1Hits: 1},
		Lists: testLists(),
	}

	unweighted := NewEngine(config.ChecksConfig{}, nil)
	cats, _, _ := unweighted.Run(in)
	base := findCategory(t, cats, "threat_intel")

	weighted := NewEngine(config.ChecksConfig{
		CategoryWeights: map[string]float64{"threat_intel": 2.0},
	}, nil)
	cats, _, _ = weighted.Run(in)
	scaled := findCategory(t, cats, "threat_intel")

	assert.Equal(t, base.Earned*2, scaled.Earned)
	assert.Equal(t, base.Possible*2, scaled.Possible)
}

func TestBranchAllows(t *testing.T) {
	tests := []struct {
		need   need
		state  models.Reachability
		expect bool
	}{
		{needNone, models.ReachOffline, true},
		{needWHOIS, models.ReachSinkhole, true},
		{needDNS, models.ReachParked, false},
		{needDNS, models.ReachWAF, true},
		{needTLS, models.ReachOnline, true},
		{needTLS, models.ReachWAF, false},
		{needHTML, models.ReachParked, true},
		{needHTML, models.ReachOffline, false},
		{needScreenshot, models.ReachParked, false},
		{needScreenshot, models.ReachOnline, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expect, branchAllows(tt.need, tt.state), "%s on %s", tt.need, tt.state)
	}
}
