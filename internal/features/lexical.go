package features

import (
	"math"
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// RegisteredDomain returns the eTLD+1 for a hostname ("a.b.example.co.uk"
// → "example.co.uk"). For raw IPs and hosts without a known suffix it
// returns the input unchanged.
func RegisteredDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

// TLD returns the public suffix of a hostname ("example.co.uk" →
// "co.uk"), or "" for raw IPs.
func TLD(host string) string {
	if net.ParseIP(host) != nil {
		return ""
	}
	suffix, _ := publicsuffix.PublicSuffix(host)
	return suffix
}

// SubdomainCount counts the labels left of the registered domain.
func SubdomainCount(host string) int {
	reg := RegisteredDomain(host)
	if host == reg {
		return 0
	}
	prefix := strings.TrimSuffix(host, "."+reg)
	if prefix == host {
		return 0
	}
	return strings.Count(prefix, ".") + 1
}

// shannonEntropy computes the Shannon entropy of s in bits per character.
// Algorithmically generated hostnames land well above natural-language
// ones.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[rune]int)
	total := 0
	for _, r := range s {
		freq[r]++
		total++
	}
	entropy := 0.0
	for _, n := range freq {
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// commonBigrams are frequent English letter pairs; hostnames made of
// natural words consist mostly of these.
var commonBigrams = map[string]bool{
	"th": true, "he": true, "in": true, "er": true, "an": true,
	"re": true, "on": true, "at": true, "en": true, "nd": true,
	"ti": true, "es": true, "or": true, "te": true, "of": true,
	"ed": true, "is": true, "it": true, "al": true, "ar": true,
	"st": true, "to": true, "nt": true, "ng": true, "se": true,
	"ha": true, "as": true, "ou": true, "io": true, "le": true,
	"ve": true, "co": true, "me": true, "de": true, "hi": true,
	"ri": true, "ro": true, "ic": true, "ne": true, "ea": true,
	"ra": true, "ce": true, "li": true, "ch": true, "ll": true,
	"be": true, "ma": true, "si": true, "om": true, "ur": true,
}

// bigramRarity scores how un-English the hostname's adjacent character
// pairs look, in [0,1]. Common English bigrams score 0; letter pairs
// outside the common set score 0.5; letter/digit mixes score 1.
func bigramRarity(host string) float64 {
	// Dots and hyphens separate tokens; score within tokens only.
	cleaned := strings.Map(func(r rune) rune {
		if r == '.' || r == '-' {
			return ' '
		}
		return r
	}, strings.ToLower(host))

	var sum float64
	var count int
	for _, token := range strings.Fields(cleaned) {
		runes := []rune(token)
		for i := 0; i+1 < len(runes); i++ {
			a, b := runes[i], runes[i+1]
			pair := string([]rune{a, b})
			switch {
			case commonBigrams[pair]:
				// common pair, contributes 0
			case isLetter(a) && isLetter(b):
				sum += 0.5
			default:
				sum += 1.0
			}
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// digitRatio is the fraction of hostname characters that are digits,
// ignoring separators.
func digitRatio(host string) float64 {
	var digits, total int
	for _, r := range host {
		if r == '.' || r == '-' {
			continue
		}
		total++
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}

// keywordHits counts how many of the given keywords appear in s.
func keywordHits(s string, keywords []string) int {
	lower := strings.ToLower(s)
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// hasPunycode reports whether any hostname label is punycode-encoded.
func hasPunycode(host string) bool {
	for _, label := range strings.Split(host, ".") {
		if strings.HasPrefix(label, "xn--") {
			return true
		}
	}
	return false
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
