package checks

import (
	"fmt"
	"strings"

	"github.com/hakim/threatscore/internal/features"
	"github.com/hakim/threatscore/internal/models"
)

// urlChecks need only the URL string and run on every reachability
// branch. They are the baseline battery for unreachable targets.
var urlChecks = []Check{
	{
		ID:        "PHISH_SUBDOMAIN_IMPERSONATION",
		Category:  "phishing",
		MaxPoints: 25,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			host := in.Req.Hostname
			reg := features.RegisteredDomain(host)
			sub := strings.TrimSuffix(host, reg)
			for _, brand := range in.Lists.BrandKeywords {
				if brandInToken(sub, brand) {
					return models.CheckFail, 25,
						fmt.Sprintf("subdomain impersonates brand %q on unrelated domain %s", brand, reg),
						map[string]string{"brand": brand, "registered_domain": reg}
				}
			}
			return models.CheckPass, 0, "no watched brand in subdomain labels", nil
		},
	},
	{
		ID:        "PHISH_BRAND_IN_PATH",
		Category:  "phishing",
		MaxPoints: 20,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			path := strings.ToLower(in.Req.ParsedURL().Path)
			reg := features.RegisteredDomain(in.Req.Hostname)
			for _, brand := range in.Lists.BrandKeywords {
				if strings.Contains(path, brand) && !strings.Contains(reg, brand) {
					return models.CheckFail, 20,
						fmt.Sprintf("brand %q appears in the URL path of an unrelated domain", brand),
						map[string]string{"brand": brand, "path": path}
				}
			}
			return models.CheckPass, 0, "no watched brand in URL path", nil
		},
	},
	{
		ID:        "PHISH_LURE_KEYWORDS",
		Category:  "phishing",
		MaxPoints: 10,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			hits := in.Features.Lexical.KeywordHits
			switch {
			case hits >= 2:
				return models.CheckFail, 10, fmt.Sprintf("%d phishing lure keywords in URL", hits), nil
			case hits == 1:
				return models.CheckWarn, 5, "one phishing lure keyword in URL", nil
			default:
				return models.CheckPass, 0, "no phishing lure keywords in URL", nil
			}
		},
	},
	{
		ID:        "PHISH_EXCESSIVE_SUBDOMAINS",
		Category:  "phishing",
		MaxPoints: 10,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			n := in.Features.Lexical.SubdomainCount
			if n >= 3 {
				return models.CheckWarn, 10, fmt.Sprintf("%d subdomain labels obscure the registered domain", n), nil
			}
			return models.CheckPass, 0, "subdomain depth is ordinary", nil
		},
	},
	{
		ID:        "BRAND_FREE_HOSTING_IMPERSONATION",
		Category:  "brand",
		MaxPoints: 25,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			if !in.Features.Tabular.IsFreeHosting {
				return models.CheckPass, 0, "not hosted on a free-hosting provider", nil
			}
			target := in.Req.Hostname + strings.ToLower(in.Req.ParsedURL().Path)
			for _, brand := range in.Lists.BrandKeywords {
				if strings.Contains(target, brand) {
					return models.CheckFail, 25,
						fmt.Sprintf("brand %q claimed on free-hosting infrastructure", brand),
						map[string]string{"brand": brand}
				}
			}
			return models.CheckWarn, 5, "free-hosting provider without brand markers", nil
		},
	},
	{
		ID:        "FIN_KEYWORDS_URL",
		Category:  "financial_fraud",
		MaxPoints: 15,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			target := in.Req.Hostname + strings.ToLower(in.Req.ParsedURL().Path)
			var hits []string
			for _, kw := range in.Lists.FinancialKeywords {
				if strings.Contains(target, kw) {
					hits = append(hits, kw)
				}
			}
			reg := features.RegisteredDomain(in.Req.Hostname)
			switch {
			case len(hits) >= 2:
				return models.CheckFail, 15,
					"multiple banking/financial keywords in URL",
					map[string]string{"keywords": strings.Join(hits, ","), "registered_domain": reg}
			case len(hits) == 1:
				return models.CheckWarn, 8,
					fmt.Sprintf("financial keyword %q in URL", hits[0]), nil
			default:
				return models.CheckPass, 0, "no financial keywords in URL", nil
			}
		},
	},
	{
		ID:        "TECH_PUNYCODE_HOST",
		Category:  "technical",
		MaxPoints: 15,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			if in.Features.Lexical.HasPunycode {
				return models.CheckFail, 15, "punycode-encoded hostname label (homoglyph risk)", nil
			}
			return models.CheckPass, 0, "no punycode labels", nil
		},
	},
	{
		ID:        "TECH_RAW_IP_HOST",
		Category:  "technical",
		MaxPoints: 15,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			if in.Features.Lexical.HasRawIP {
				return models.CheckFail, 15, "URL addresses a raw IP instead of a hostname", nil
			}
			return models.CheckPass, 0, "hostname is a regular domain", nil
		},
	},
	{
		ID:        "TECH_CREDENTIALS_IN_URL",
		Category:  "technical",
		MaxPoints: 15,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			if in.Req.ParsedURL().User != nil {
				return models.CheckFail, 15, "userinfo embedded in URL can spoof the apparent hostname", nil
			}
			return models.CheckPass, 0, "no embedded userinfo", nil
		},
	},
	{
		ID:        "TECH_SUSPICIOUS_TLD",
		Category:  "technical",
		MaxPoints: 10,
		Needs:     needNone,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			risk := in.Features.Tabular.TLDRisk
			tld := features.TLD(in.Req.Hostname)
			if risk >= 0.6 {
				return models.CheckWarn, 10,
					fmt.Sprintf("TLD .%s is heavily abused (risk %.2f)", tld, risk),
					map[string]string{"tld": tld}
			}
			return models.CheckPass, 0, "TLD is not on the high-abuse list", nil
		},
	},
}

// brandInToken reports whether brand appears inside the dot/hyphen
// separated tokens of s. "paypal-com" matches "paypal"; an empty s never
// matches.
func brandInToken(s, brand string) bool {
	s = strings.Trim(strings.ToLower(s), ".")
	if s == "" {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		for _, token := range strings.Split(label, "-") {
			if token == brand {
				return true
			}
		}
		if strings.Contains(label, brand) {
			return true
		}
	}
	return false
}
