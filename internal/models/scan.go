package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScanOptions carries the per-scan flags supplied by the caller.
type ScanOptions struct {
	// SkipScreenshot disables screenshot capture even when the branch
	// would normally collect one.
	SkipScreenshot bool `json:"skip_screenshot,omitempty"`

	// SkipStage2 forces the deep stage off regardless of Stage-1 confidence.
	SkipStage2 bool `json:"skip_stage2,omitempty"`

	// Deadline caps the total wall-clock time for the whole scan.
	// Zero means the orchestrator's configured default applies.
	Deadline time.Duration `json:"deadline,omitempty"`
}

// ScanRequest identifies a single URL to score. It is immutable once
// created; every pipeline component receives it by value.
type ScanRequest struct {
	ID        string      `json:"id"`
	RawURL    string      `json:"raw_url"`
	URL       string      `json:"url"` // canonical form
	Hostname  string      `json:"hostname"`
	Options   ScanOptions `json:"options"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewScanRequest canonicalizes rawURL and assigns a fresh scan ID.
//
// Canonicalization: a missing scheme defaults to https, the hostname is
// lowercased, and default ports (:80 for http, :443 for https) are
// stripped. A URL without a hostname is rejected.
func NewScanRequest(rawURL string, opts ScanOptions) (ScanRequest, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ScanRequest{}, fmt.Errorf("models: scan request URL is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return ScanRequest{}, fmt.Errorf("models: parsing scan URL: %w", err)
	}
	if u.Hostname() == "" {
		return ScanRequest{}, fmt.Errorf("models: scan URL %q has no hostname", rawURL)
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	switch {
	case port == "" ||
		(u.Scheme == "http" && port == "80") ||
		(u.Scheme == "https" && port == "443"):
		u.Host = host
	default:
		u.Host = host + ":" + port
	}

	return ScanRequest{
		ID:        uuid.New().String(),
		RawURL:    rawURL,
		URL:       u.String(),
		Hostname:  host,
		Options:   opts,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ParsedURL re-parses the canonical URL. The canonical form is produced by
// url.Parse, so parsing it again cannot fail for a request built through
// NewScanRequest.
func (r ScanRequest) ParsedURL() *url.URL {
	u, err := url.Parse(r.URL)
	if err != nil {
		return &url.URL{Host: r.Hostname}
	}
	return u
}

// ScanResult is the full output of one scan. It is assembled once at the
// end of orchestration and never mutated after return.
type ScanResult struct {
	ScanID      string    `json:"scan_id"`
	RawURL      string    `json:"raw_url"`
	URL         string    `json:"url"`
	Hostname    string    `json:"hostname"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	Reachability ReachabilityResult `json:"reachability"`
	Intel        TISummary          `json:"intel"`

	// EvidenceMissing lists the evidence sub-records that could not be
	// collected, so consumers can tell "checked and clean" from
	// "could not check".
	EvidenceMissing []string `json:"evidence_missing,omitempty"`

	Stage1  *StageResult      `json:"stage1,omitempty"`
	Stage2  *StageResult      `json:"stage2,omitempty"`
	Verdict *CalibratedVerdict `json:"verdict,omitempty"`
	Policy  PolicyDecision    `json:"policy"`

	Categories       []CategoryResult `json:"categories,omitempty"`
	CategoryEarned   int              `json:"category_earned"`
	CategoryPossible int              `json:"category_possible"`

	RiskLevel RiskBand `json:"risk_level"`

	// Incomplete marks a scan that hit the top-level deadline before every
	// stage finished. The result still carries everything produced so far.
	Incomplete       bool   `json:"incomplete,omitempty"`
	IncompleteReason string `json:"incomplete_reason,omitempty"`

	// StageLatencies records wall time per pipeline stage, in milliseconds.
	StageLatencies map[string]int64 `json:"stage_latencies_ms,omitempty"`
}

// ReachabilityResult is the prober's terminal classification plus the
// diagnostics that justified it. Produced once per scan, read-only downstream.
type ReachabilityResult struct {
	State         Reachability `json:"state"`
	ResolvedIP    string       `json:"resolved_ip,omitempty"`
	HTTPStatus    int          `json:"http_status,omitempty"`
	RedirectChain []string     `json:"redirect_chain,omitempty"`

	// Signal names the signature or heuristic that produced a PARKED, WAF
	// or SINKHOLE classification.
	Signal string `json:"signal,omitempty"`

	// FailedStage names the probe stage (dns, tcp, http) that produced an
	// OFFLINE classification.
	FailedStage string `json:"failed_stage,omitempty"`
}
