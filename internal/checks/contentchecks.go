package checks

import (
	"fmt"
	"strings"

	"github.com/hakim/threatscore/internal/models"
)

// contentChecks read the rendered page: form wiring, redirect tricks,
// obfuscation and financial-fraud markers. HTML evidence exists on the
// ONLINE branch and, template-only, on PARKED.
var contentChecks = []Check{
	{
		ID:        "CONTENT_EXTERNAL_FORM_POST",
		Category:  "content",
		MaxPoints: 20,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			h := in.Bundle.HTML
			if h == nil {
				return models.CheckInfo, 0, "page rendering failed", nil
			}
			for _, f := range h.Forms {
				if f.HasPassword && f.ExternalPost {
					return models.CheckFail, 20,
						"credential form posts to a foreign origin",
						map[string]string{"action_host": f.ActionHost}
				}
			}
			return models.CheckPass, 0, "no credential form posts off-origin", nil
		},
	},
	{
		ID:        "CONTENT_INSECURE_FORM_POST",
		Category:  "content",
		MaxPoints: 15,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			h := in.Bundle.HTML
			if h == nil {
				return models.CheckInfo, 0, "page rendering failed", nil
			}
			for _, f := range h.Forms {
				if f.InsecurePost {
					return models.CheckFail, 15, "form submits over plain HTTP", map[string]string{"action": f.Action}
				}
			}
			return models.CheckPass, 0, "all forms submit over TLS", nil
		},
	},
	{
		ID:        "CONTENT_META_REFRESH",
		Category:  "content",
		MaxPoints: 5,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			h := in.Bundle.HTML
			if h == nil {
				return models.CheckInfo, 0, "page rendering failed", nil
			}
			if h.MetaRefresh {
				return models.CheckWarn, 5, "meta-refresh redirect on landing page", nil
			}
			return models.CheckPass, 0, "no meta-refresh redirect", nil
		},
	},
	{
		ID:        "MALWARE_AUTO_DOWNLOAD",
		Category:  "malware",
		MaxPoints: 25,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			h := in.Bundle.HTML
			if h == nil {
				return models.CheckInfo, 0, "page rendering failed", nil
			}
			if h.AutoDownload {
				return models.CheckFail, 25, "page initiated a download without user interaction", nil
			}
			return models.CheckPass, 0, "no drive-by download behavior", nil
		},
	},
	{
		ID:        "MALWARE_SCRIPT_OBFUSCATION",
		Category:  "malware",
		MaxPoints: 10,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			h := in.Bundle.HTML
			if h == nil {
				return models.CheckInfo, 0, "page rendering failed", nil
			}
			if h.Obfuscated {
				return models.CheckWarn, 10, "heavily obfuscated inline scripts", nil
			}
			return models.CheckPass, 0, "scripts are not obfuscated", nil
		},
	},
	{
		ID:        "FIN_PAYMENT_FORM_FREE_HOSTING",
		Category:  "financial_fraud",
		MaxPoints: 20,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			h := in.Bundle.HTML
			if h == nil {
				return models.CheckInfo, 0, "page rendering failed", nil
			}
			if !in.Features.Tabular.IsFreeHosting {
				return models.CheckPass, 0, "not hosted on a free-hosting provider", nil
			}
			text := strings.ToLower(h.Text)
			for _, f := range h.Forms {
				if f.HasPassword || strings.Contains(text, "card number") || strings.Contains(text, "iban") {
					return models.CheckFail, 20,
						"payment or credential collection on free-hosting infrastructure",
						map[string]string{"action": f.Action}
				}
			}
			return models.CheckPass, 0, "no payment collection markers", nil
		},
	},
}

// behavioralChecks flag runtime behavior observed during rendering.
var behavioralChecks = []Check{
	{
		ID:        "BEHAV_FOREIGN_SCRIPTS",
		Category:  "behavioral",
		MaxPoints: 10,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			h := in.Bundle.HTML
			if h == nil {
				return models.CheckInfo, 0, "page rendering failed", nil
			}
			n := len(h.ScriptHosts)
			switch {
			case n >= 8:
				return models.CheckFail, 10, fmt.Sprintf("scripts loaded from %d foreign hosts", n), nil
			case n >= 4:
				return models.CheckWarn, 5, fmt.Sprintf("scripts loaded from %d foreign hosts", n), nil
			default:
				return models.CheckPass, 0, "few or no foreign script origins", nil
			}
		},
	},
	{
		ID:        "BEHAV_LINK_FARM",
		Category:  "behavioral",
		MaxPoints: 5,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			h := in.Bundle.HTML
			if h == nil {
				return models.CheckInfo, 0, "page rendering failed", nil
			}
			if h.ExternalLinks > 100 {
				return models.CheckWarn, 5, fmt.Sprintf("%d outbound links on landing page", h.ExternalLinks), nil
			}
			return models.CheckPass, 0, "outbound link count is ordinary", nil
		},
	},
}

// urgencyPhrases are the social-engineering markers scanned for in page
// text. Matching is lowercase substring.
var urgencyPhrases = []string{
	"act now",
	"account suspended",
	"account will be closed",
	"immediate action required",
	"verify your identity",
	"unusual activity",
	"within 24 hours",
	"final warning",
	"limited time",
	"you have won",
}

var socialChecks = []Check{
	{
		ID:        "SOCIAL_URGENCY_LANGUAGE",
		Category:  "social_engineering",
		MaxPoints: 15,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			h := in.Bundle.HTML
			if h == nil {
				return models.CheckInfo, 0, "page rendering failed", nil
			}
			text := strings.ToLower(h.Text)
			var hits []string
			for _, p := range urgencyPhrases {
				if strings.Contains(text, p) {
					hits = append(hits, p)
				}
			}
			switch {
			case len(hits) >= 3:
				return models.CheckFail, 15, "page text stacks urgency and threat language",
					map[string]string{"phrases": strings.Join(hits, "; ")}
			case len(hits) >= 1:
				return models.CheckWarn, 8, fmt.Sprintf("urgency phrase %q in page text", hits[0]), nil
			default:
				return models.CheckPass, 0, "no urgency language detected", nil
			}
		},
	},
}

// headerChecks grade the security headers on the final document response.
var headerChecks = []Check{
	{
		ID:        "HDR_CSP_MISSING",
		Category:  "headers",
		MaxPoints: 5,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			return headerPresence(in, "Content-Security-Policy", 5)
		},
	},
	{
		ID:        "HDR_HSTS_MISSING",
		Category:  "headers",
		MaxPoints: 5,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			return headerPresence(in, "Strict-Transport-Security", 5)
		},
	},
	{
		ID:        "HDR_XFO_MISSING",
		Category:  "headers",
		MaxPoints: 3,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			return headerPresence(in, "X-Frame-Options", 3)
		},
	},
}

func headerPresence(in Input, name string, warnPoints int) (models.CheckStatus, int, string, map[string]string) {
	h := in.Bundle.HTML
	if h == nil {
		return models.CheckInfo, 0, "page rendering failed", nil
	}
	for k := range h.Headers {
		if strings.EqualFold(k, name) {
			return models.CheckPass, 0, name + " present", nil
		}
	}
	return models.CheckWarn, warnPoints, name + " missing", nil
}

// privacyChecks flag consent-free tracking.
var privacyChecks = []Check{
	{
		ID:        "PRIV_COOKIES_WITHOUT_CONSENT",
		Category:  "privacy",
		MaxPoints: 5,
		Needs:     needHTML,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			h := in.Bundle.HTML
			if h == nil {
				return models.CheckInfo, 0, "page rendering failed", nil
			}
			if h.Cookies > 5 {
				return models.CheckWarn, 5, fmt.Sprintf("%d cookies set before any consent", h.Cookies), nil
			}
			return models.CheckPass, 0, "cookie behavior is unremarkable", nil
		},
	},
}
