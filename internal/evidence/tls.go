package evidence

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hakim/threatscore/internal/models"
)

// CertInspector is the default TLSInspector: a direct handshake against
// port 443. The first handshake verifies the chain; on verification
// failure a second, unverified handshake retrieves the certificate so its
// issuer and expiry can still be reported.
type CertInspector struct {
	now func() time.Time
}

// NewCertInspector builds the default inspector.
func NewCertInspector() *CertInspector {
	return &CertInspector{now: time.Now}
}

// Inspect performs the handshake and derives the TLS evidence.
func (c *CertInspector) Inspect(ctx context.Context, hostname string) (*models.TLSEvidence, error) {
	cert, valid, err := c.handshake(ctx, hostname, false)
	if err != nil {
		var vErr *tls.CertificateVerificationError
		var uErr x509.UnknownAuthorityError
		if !errors.As(err, &vErr) && !errors.As(err, &uErr) {
			return nil, err
		}
		// Chain failed verification; fetch the leaf anyway for reporting.
		cert, _, err = c.handshake(ctx, hostname, true)
		if err != nil {
			return nil, err
		}
		valid = false
	}
	if cert == nil {
		return nil, fmt.Errorf("evidence: no certificate presented by %s", hostname)
	}

	ev := &models.TLSEvidence{
		Valid:        valid,
		Issuer:       cert.Issuer.CommonName,
		SelfSigned:   cert.Issuer.String() == cert.Subject.String(),
		Expiry:       cert.NotAfter,
		DaysToExpiry: int(cert.NotAfter.Sub(c.now()).Hours() / 24),
	}
	return ev, nil
}

func (c *CertInspector) handshake(ctx context.Context, hostname string, insecure bool) (*x509.Certificate, bool, error) {
	dialer := &tls.Dialer{
		Config: &tls.Config{
			ServerName:         hostname,
			InsecureSkipVerify: insecure,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(hostname, "443"))
	if err != nil {
		return nil, false, fmt.Errorf("evidence: tls handshake with %s: %w", hostname, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, false, nil
	}
	return state.PeerCertificates[0], !insecure, nil
}
