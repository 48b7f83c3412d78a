package evidence

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hakim/threatscore/internal/features"
	"github.com/hakim/threatscore/internal/models"
)

// WHOISClient is the default DomainRegistryLookup: a plain port-43 WHOIS
// query against the TLD's registry server, parsed for the handful of
// fields the pipeline consumes. Registrable-domain extraction happens
// before the query so subdomains resolve to their parent's record.
type WHOISClient struct {
	// Dial is injectable for tests; nil uses net.Dialer.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)

	now func() time.Time
}

// NewWHOISClient builds the default client.
func NewWHOISClient() *WHOISClient {
	return &WHOISClient{now: time.Now}
}

// Lookup queries {tld}.whois-servers.net for the hostname's registrable
// domain and parses the response.
func (c *WHOISClient) Lookup(ctx context.Context, hostname string) (*models.WHOISEvidence, error) {
	domain := features.RegisteredDomain(hostname)
	tld := features.TLD(domain)
	if tld == "" || tld == domain {
		return nil, fmt.Errorf("evidence: no registrable domain for %q", hostname)
	}

	raw, err := c.query(ctx, tld+".whois-servers.net:43", domain)
	if err != nil {
		return nil, err
	}
	return c.parse(raw), nil
}

func (c *WHOISClient) query(ctx context.Context, addr, domain string) (string, error) {
	dial := c.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}

	conn, err := dial(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("evidence: whois dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return "", fmt.Errorf("evidence: whois deadline on %s: %w", addr, err)
		}
	}

	if _, err := fmt.Fprintf(conn, "%s\r\n", domain); err != nil {
		return "", fmt.Errorf("evidence: whois query: %w", err)
	}

	var b strings.Builder
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("evidence: whois read: %w", err)
	}
	return b.String(), nil
}

// privacyMarkers are substrings that indicate a shielded registrant.
var privacyMarkers = []string{
	"redacted", "privacy", "whoisguard", "private registration",
	"data protected", "withheld", "domains by proxy",
}

func (c *WHOISClient) parse(raw string) *models.WHOISEvidence {
	ev := &models.WHOISEvidence{AgeDays: -1}
	lower := strings.ToLower(raw)

	for _, marker := range privacyMarkers {
		if strings.Contains(lower, marker) {
			ev.Privacy = true
			break
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch key {
		case "creation date", "created", "registered on", "domain registration date":
			if t, ok := parseWhoisTime(value); ok && ev.CreatedAt.IsZero() {
				ev.CreatedAt = t
			}
		case "registry expiry date", "expiry date", "expiration date", "expires on":
			if t, ok := parseWhoisTime(value); ok && ev.ExpiresAt.IsZero() {
				ev.ExpiresAt = t
			}
		case "registrar":
			if ev.Registrar == "" {
				ev.Registrar = value
			}
		}
	}

	if !ev.CreatedAt.IsZero() {
		ev.AgeDays = int(c.now().Sub(ev.CreatedAt).Hours() / 24)
	}
	return ev
}

// whoisTimeLayouts covers the date formats registries actually emit.
var whoisTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func parseWhoisTime(value string) (time.Time, bool) {
	for _, layout := range whoisTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
