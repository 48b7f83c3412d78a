package models

import "time"

// EvidenceBundle holds everything the collectors managed to gather for one
// scan. Every sub-record is optional: a nil pointer means collection was
// skipped or failed, which downstream consumers must treat differently
// from a negative finding inside a present record.
type EvidenceBundle struct {
	WHOIS      *WHOISEvidence      `json:"whois,omitempty"`
	DNS        *DNSEvidence        `json:"dns,omitempty"`
	TLS        *TLSEvidence        `json:"tls,omitempty"`
	HTML       *HTMLEvidence       `json:"html,omitempty"`
	Screenshot *ScreenshotEvidence `json:"screenshot,omitempty"`
}

// Missing returns the names of the sub-records that are absent from the
// bundle, in a fixed order.
func (b EvidenceBundle) Missing() []string {
	var missing []string
	if b.WHOIS == nil {
		missing = append(missing, "whois")
	}
	if b.DNS == nil {
		missing = append(missing, "dns")
	}
	if b.TLS == nil {
		missing = append(missing, "tls")
	}
	if b.HTML == nil {
		missing = append(missing, "html")
	}
	if b.Screenshot == nil {
		missing = append(missing, "screenshot")
	}
	return missing
}

// WHOISEvidence is the registry view of the domain.
type WHOISEvidence struct {
	AgeDays   int    `json:"age_days"`
	Registrar string `json:"registrar,omitempty"`
	Privacy   bool   `json:"privacy"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// DNSEvidence records which record types resolved and the mail-security
// posture derived from TXT records.
type DNSEvidence struct {
	HasA    bool `json:"has_a"`
	HasAAAA bool `json:"has_aaaa"`
	HasMX   bool `json:"has_mx"`
	HasTXT  bool `json:"has_txt"`
	HasCAA  bool `json:"has_caa"`

	// SPF and DMARC presence is derived from TXT lookups.
	HasSPF   bool `json:"has_spf"`
	HasDMARC bool `json:"has_dmarc"`

	NameServers []string `json:"name_servers,omitempty"`
}

// TLSEvidence is the certificate inspection result.
type TLSEvidence struct {
	Valid      bool      `json:"valid"`
	Issuer     string    `json:"issuer,omitempty"`
	SelfSigned bool      `json:"self_signed"`
	Expiry     time.Time `json:"expiry,omitzero"`

	// DaysToExpiry is negative for an already-expired certificate.
	DaysToExpiry int `json:"days_to_expiry"`
}

// HTMLForm describes one form found in the rendered page.
type HTMLForm struct {
	Action        string `json:"action,omitempty"`
	Method        string `json:"method,omitempty"`
	HasPassword   bool   `json:"has_password"`
	ActionHost    string `json:"action_host,omitempty"`
	ExternalPost  bool   `json:"external_post"`
	InsecurePost  bool   `json:"insecure_post"`
}

// HTMLEvidence is the rendered-page view: forms, scripts, links and the
// signals the renderer derived while loading.
type HTMLEvidence struct {
	Title        string     `json:"title,omitempty"`
	Forms        []HTMLForm `json:"forms,omitempty"`
	ScriptHosts  []string   `json:"script_hosts,omitempty"`
	ExternalLinks int       `json:"external_links"`
	MetaRefresh  bool       `json:"meta_refresh"`
	Obfuscated   bool       `json:"obfuscated"`

	// AutoDownload is set when the page initiated a download without user
	// interaction during rendering.
	AutoDownload bool `json:"auto_download"`

	// Text is the aggregated visible page text used by the persuasion model.
	Text string `json:"text,omitempty"`

	// Headers carries the response headers from the final document request.
	Headers map[string]string `json:"headers,omitempty"`

	// Cookies counts cookies set without user consent during rendering.
	Cookies int `json:"cookies"`
}

// ScreenshotEvidence references a captured screenshot and the flags the
// visual pipeline derived from it.
type ScreenshotEvidence struct {
	Ref string `json:"ref"`

	// BrandLogoDetected is set when a known brand logo was recognised on a
	// page whose domain does not belong to that brand's infrastructure.
	BrandLogoDetected bool   `json:"brand_logo_detected"`
	DetectedBrand     string `json:"detected_brand,omitempty"`

	// LoginFormVisible is set when the capture shows a credential prompt.
	LoginFormVisible bool `json:"login_form_visible"`
}
