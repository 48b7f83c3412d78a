package checks

import "slices"

// categoryOrder fixes the presentation order of category results.
var categoryOrder = []string{
	"threat_intel",
	"domain",
	"tls",
	"content",
	"phishing",
	"behavioral",
	"network",
	"malware",
	"social_engineering",
	"headers",
	"email_security",
	"privacy",
	"financial_fraud",
	"identity_theft",
	"technical",
	"legal",
	"brand",
}

// registry is the full battery in execution order. URL-structure checks
// come first: they are the baseline that runs on every branch.
var registry = slices.Concat(
	urlChecks,
	intelChecks,
	domainChecks,
	networkChecks,
	emailChecks,
	tlsChecks,
	contentChecks,
	behavioralChecks,
	socialChecks,
	headerChecks,
	privacyChecks,
	identityChecks,
	legalChecks,
	brandScreenshotChecks,
)
