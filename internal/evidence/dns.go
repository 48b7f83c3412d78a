package evidence

import (
	"context"
	"net"
	"strings"

	"github.com/hakim/threatscore/internal/features"
	"github.com/hakim/threatscore/internal/models"
)

// NetResolver is the default DNSResolver, built on the system resolver.
// SPF and DMARC presence is derived from TXT lookups. CAA is not queryable
// through the system resolver, so HasCAA stays false here and the CAA
// check reads as a warning.
type NetResolver struct {
	r *net.Resolver
}

// NewNetResolver builds a resolver over the system configuration.
func NewNetResolver() *NetResolver {
	return &NetResolver{r: net.DefaultResolver}
}

// Resolve queries A/AAAA, MX, NS and TXT for the hostname, plus the DMARC
// TXT record at _dmarc.{registrable domain}.
func (n *NetResolver) Resolve(ctx context.Context, hostname string) (*models.DNSEvidence, error) {
	ev := &models.DNSEvidence{}

	ips, err := n.r.LookupIPAddr(ctx, hostname)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	for _, ip := range ips {
		if ip.IP.To4() != nil {
			ev.HasA = true
		} else {
			ev.HasAAAA = true
		}
	}

	domain := features.RegisteredDomain(hostname)

	if mx, err := n.r.LookupMX(ctx, domain); err == nil && len(mx) > 0 {
		ev.HasMX = true
	}
	if ns, err := n.r.LookupNS(ctx, domain); err == nil {
		for _, rec := range ns {
			ev.NameServers = append(ev.NameServers, strings.TrimSuffix(rec.Host, "."))
		}
	}

	if txts, err := n.r.LookupTXT(ctx, domain); err == nil && len(txts) > 0 {
		ev.HasTXT = true
		for _, txt := range txts {
			if strings.HasPrefix(strings.ToLower(txt), "v=spf1") {
				ev.HasSPF = true
				break
			}
		}
	}
	if txts, err := n.r.LookupTXT(ctx, "_dmarc."+domain); err == nil {
		for _, txt := range txts {
			if strings.HasPrefix(strings.ToLower(txt), "v=dmarc1") {
				ev.HasDMARC = true
				break
			}
		}
	}

	return ev, nil
}
