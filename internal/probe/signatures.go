package probe

import (
	"net/http"
	"strings"
)

// Signature tables for terminal classifications. Matching is substring
// based over the lowercased body sample and selected headers; each entry
// carries a stable signal name for the audit trail.

type signature struct {
	Name   string
	Needle string
}

// sinkholeBodySignatures mark takedown/seizure landing pages.
var sinkholeBodySignatures = []signature{
	{"seizure-banner", "this domain has been seized"},
	{"seizure-banner", "this website has been seized"},
	{"sinkhole-text", "sinkhole"},
	{"takedown-notice", "domain has been taken down"},
	{"law-enforcement", "pursuant to a seizure warrant"},
	{"registrar-hold", "suspended for policy violation"},
}

// sinkholeServerSignatures mark known sinkhole server software.
var sinkholeServerSignatures = []signature{
	{"sinkhole-server", "sinkhole"},
	{"abuse-ch", "abuse.ch"},
}

// wafBodySignatures mark bot-challenge and CAPTCHA interstitials.
var wafBodySignatures = []signature{
	{"cloudflare-challenge", "checking your browser before accessing"},
	{"cloudflare-challenge", "attention required! | cloudflare"},
	{"cloudflare-turnstile", "cf-turnstile"},
	{"generic-captcha", "complete the captcha"},
	{"recaptcha", "g-recaptcha"},
	{"incapsula", "request unsuccessful. incapsula"},
	{"akamai-challenge", "access denied. you don't have permission"},
	{"ddos-guard", "ddos protection by"},
	{"perimeterx", "please verify you are a human"},
}

// parkedBodySignatures mark registrar placeholder and domain-sale pages.
var parkedBodySignatures = []signature{
	{"parked-banner", "this domain is parked"},
	{"for-sale", "buy this domain"},
	{"for-sale", "this domain is for sale"},
	{"for-sale", "domain may be for sale"},
	{"godaddy-parking", "parked free, courtesy of godaddy"},
	{"sedo-parking", "sedoparking"},
	{"parkingcrew", "parkingcrew"},
	{"namecheap-parking", "this domain was recently registered at namecheap"},
	{"placeholder", "future home of something quite cool"},
	{"placeholder", "website coming soon"},
}

// matchSinkhole returns the matching sinkhole signal name, or "".
func matchSinkhole(body, server string, headers http.Header) string {
	for _, sig := range sinkholeServerSignatures {
		if server != "" && strings.Contains(server, sig.Needle) {
			return sig.Name
		}
	}
	if headers.Get("X-Sinkhole") != "" {
		return "sinkhole-header"
	}
	for _, sig := range sinkholeBodySignatures {
		if strings.Contains(body, sig.Needle) {
			return sig.Name
		}
	}
	return ""
}

// matchWAF returns the matching WAF signal name, or "".
func matchWAF(status int, body, server string, headers http.Header) string {
	for _, sig := range wafBodySignatures {
		if strings.Contains(body, sig.Needle) {
			return sig.Name
		}
	}

	// Challenge status codes from known WAF vendors without a recognizable
	// body still indicate a challenge, not an origin response.
	if status == http.StatusForbidden || status == http.StatusTooManyRequests ||
		status == 503 {
		switch {
		case strings.Contains(server, "cloudflare"):
			return "cloudflare-status"
		case strings.Contains(server, "akamai"):
			return "akamai-status"
		case headers.Get("X-Iinfo") != "": // Incapsula marker header
			return "incapsula-status"
		}
	}
	return ""
}

// matchParked returns the matching parking signal name, or "".
func matchParked(body string) string {
	for _, sig := range parkedBodySignatures {
		if strings.Contains(body, sig.Needle) {
			return sig.Name
		}
	}
	return ""
}
