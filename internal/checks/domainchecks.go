package checks

import (
	"fmt"
	"time"

	"github.com/hakim/threatscore/internal/models"
)

// domainChecks inspect WHOIS evidence. WHOIS is collected on every
// branch, so these categories always run; absent evidence yields INFO.
var domainChecks = []Check{
	{
		ID:        "DOMAIN_AGE",
		Category:  "domain",
		MaxPoints: 20,
		Needs:     needWHOIS,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			w := in.Bundle.WHOIS
			if w == nil {
				return models.CheckInfo, 0, "WHOIS lookup unavailable; domain age unknown", nil
			}
			switch {
			case w.AgeDays < 30:
				return models.CheckFail, 20, fmt.Sprintf("domain registered %d days ago", w.AgeDays), nil
			case w.AgeDays < 180:
				return models.CheckWarn, 10, fmt.Sprintf("domain is young (%d days)", w.AgeDays), nil
			default:
				return models.CheckPass, 0, fmt.Sprintf("domain age %d days", w.AgeDays), nil
			}
		},
	},
	{
		ID:        "DOMAIN_PRIVACY_SHIELD",
		Category:  "domain",
		MaxPoints: 5,
		Needs:     needWHOIS,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			w := in.Bundle.WHOIS
			if w == nil {
				return models.CheckInfo, 0, "WHOIS lookup unavailable; privacy status unknown", nil
			}
			if w.Privacy {
				return models.CheckWarn, 5, "registrant hidden behind a privacy service", nil
			}
			return models.CheckPass, 0, "registrant details published", nil
		},
	},
	{
		ID:        "DOMAIN_EXPIRING",
		Category:  "domain",
		MaxPoints: 5,
		Needs:     needWHOIS,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			w := in.Bundle.WHOIS
			if w == nil || w.ExpiresAt.IsZero() {
				return models.CheckInfo, 0, "expiry date unavailable", nil
			}
			left := time.Until(w.ExpiresAt)
			if left < 30*24*time.Hour {
				return models.CheckWarn, 5, "registration expires within 30 days", nil
			}
			return models.CheckPass, 0, "registration is not about to lapse", nil
		},
	},
}

// networkChecks inspect DNS health.
var networkChecks = []Check{
	{
		ID:        "NET_DNS_POSTURE",
		Category:  "network",
		MaxPoints: 10,
		Needs:     needDNS,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			d := in.Bundle.DNS
			if d == nil {
				return models.CheckInfo, 0, "DNS evidence unavailable", nil
			}
			if !d.HasA && !d.HasAAAA {
				return models.CheckWarn, 10, "no address records despite resolvable zone", nil
			}
			return models.CheckPass, 0, "address records present", nil
		},
	},
	{
		ID:        "NET_CAA_MISSING",
		Category:  "network",
		MaxPoints: 3,
		Needs:     needDNS,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			d := in.Bundle.DNS
			if d == nil {
				return models.CheckInfo, 0, "DNS evidence unavailable", nil
			}
			if !d.HasCAA {
				return models.CheckWarn, 3, "no CAA record restricting certificate issuance", nil
			}
			return models.CheckPass, 0, "CAA record present", nil
		},
	},
	{
		ID:        "NET_SINGLE_NAMESERVER",
		Category:  "network",
		MaxPoints: 5,
		Needs:     needDNS,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			d := in.Bundle.DNS
			if d == nil {
				return models.CheckInfo, 0, "DNS evidence unavailable", nil
			}
			if len(d.NameServers) == 1 {
				return models.CheckWarn, 5, "zone served by a single nameserver", nil
			}
			return models.CheckPass, 0, "redundant nameservers", nil
		},
	},
}

// emailChecks derive mail-spoofing exposure from TXT records.
var emailChecks = []Check{
	{
		ID:        "EMAIL_SPF_MISSING",
		Category:  "email_security",
		MaxPoints: 10,
		Needs:     needDNS,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			d := in.Bundle.DNS
			if d == nil {
				return models.CheckInfo, 0, "DNS evidence unavailable", nil
			}
			if !d.HasMX {
				return models.CheckPass, 0, "no MX records; no mail surface to spoof", nil
			}
			if !d.HasSPF {
				return models.CheckWarn, 10, "mail-enabled domain without SPF", nil
			}
			return models.CheckPass, 0, "SPF published", nil
		},
	},
	{
		ID:        "EMAIL_DMARC_MISSING",
		Category:  "email_security",
		MaxPoints: 10,
		Needs:     needDNS,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			d := in.Bundle.DNS
			if d == nil {
				return models.CheckInfo, 0, "DNS evidence unavailable", nil
			}
			if !d.HasMX {
				return models.CheckPass, 0, "no MX records; no mail surface to spoof", nil
			}
			if !d.HasDMARC {
				return models.CheckWarn, 10, "mail-enabled domain without DMARC", nil
			}
			return models.CheckPass, 0, "DMARC published", nil
		},
	},
}

// legalChecks read the compliance posture visible in registration data.
var legalChecks = []Check{
	{
		ID:        "LEGAL_OPAQUE_REGISTRATION",
		Category:  "legal",
		MaxPoints: 10,
		Needs:     needWHOIS,
		Run: func(in Input) (models.CheckStatus, int, string, map[string]string) {
			w := in.Bundle.WHOIS
			if w == nil {
				return models.CheckInfo, 0, "WHOIS lookup unavailable", nil
			}
			if w.Privacy && w.AgeDays >= 0 && w.AgeDays < 180 {
				return models.CheckWarn, 10, "young domain with fully shielded registration", nil
			}
			if w.Registrar == "" {
				return models.CheckWarn, 5, "registrar of record is missing", nil
			}
			return models.CheckPass, 0, "registration data is accountable", nil
		},
	},
}
